package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/status"
	"github.com/sweeney/hvac-controller/internal/web"
)

const consoleTimeout = 5 * time.Second

// readlineWriter keeps log lines from clobbering the prompt.
type readlineWriter struct {
	rl *readline.Instance
}

func (w *readlineWriter) Write(p []byte) (int, error) {
	if w.rl != nil {
		w.rl.Clean()
	}
	n, err := os.Stderr.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

var rlWriter = &readlineWriter{}

type console struct {
	rl      *readline.Instance
	cmds    web.Commander
	tracker *status.Tracker
}

func newConsole(cmds web.Commander, tracker *status.Tracker) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hvac> ",
		HistoryFile:     historyFilePath(),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, err
	}
	rlWriter.rl = rl
	return &console{rl: rl, cmds: cmds, tracker: tracker}, nil
}

func (c *console) Close() error {
	rlWriter.rl = nil
	return c.rl.Close()
}

// loop reads commands until EOF or Ctrl+C; Ctrl+C stops the daemon the same
// way SIGINT does.
func (c *console) loop(ctx context.Context, sig chan<- os.Signal) {
	fmt.Fprintln(c.rl.Stdout(), "type 'help' for commands")
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			select {
			case sig <- syscall.SIGINT:
			default:
			}
			return
		}
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		handleConsoleLine(ctx, strings.TrimSpace(line), c.cmds, c.tracker, c.rl.Stdout())
	}
}

func handleConsoleLine(ctx context.Context, line string, cmds web.Commander, tracker *status.Tracker, out io.Writer) {
	if line == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, consoleTimeout)
	defer cancel()

	switch strings.ToLower(line) {
	case "help", "?":
		fmt.Fprintln(out, "commands:")
		fmt.Fprintln(out, "  status            show controller state")
		fmt.Fprintln(out, "  enable | disable  allow or stop all equipment")
		fmt.Fprintln(out, "  clearnotification acknowledge the current notification")
		fmt.Fprintln(out, "  name=value        set a parameter; names:")
		fmt.Fprintf(out, "    %s\n", strings.Join(logic.ParameterNames(), " "))
		return
	case "status":
		printStatus(out, tracker.Snapshot())
		return
	case cmdEnable, cmdDisable, cmdClearNotification:
		if err := cmds.Submit(ctx, strings.ToLower(line), 0); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		return
	}

	name, value, ok := strings.Cut(line, "=")
	if !ok {
		fmt.Fprintf(out, "unknown command: %s (try 'help')\n", line)
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		fmt.Fprintf(out, "value must be an integer: %q\n", value)
		return
	}
	if err := cmds.Submit(ctx, strings.TrimSpace(name), v); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "ok %s=%d\n", strings.TrimSpace(name), v)
}

func printStatus(out io.Writer, snap status.Snapshot) {
	st := snap.Controller
	indoor := "unknown"
	if st.IndoorKnown {
		indoor = st.Indoor.String()
	}
	fmt.Fprintf(out, "state=%s phase=%s mode=%s auto=%s heat=%s enabled=%t\n",
		st.State, st.Phase, st.Mode, st.AutoMode, st.HeatSource, st.Enabled)
	fmt.Fprintf(out, "indoor=%s rh=%d target=%s outdoor=%s override=%s\n",
		indoor, st.Humidity, st.Target, st.Outdoor, st.OverrideDelta)
	fmt.Fprintf(out, "cycle=%ds idle=%ds fan=%t filter=%dmin mqtt=%t\n",
		st.Timers.Cycle, st.Timers.Idle, st.FanRunning, st.FilterMinutes, snap.MQTTConnected)
}

func completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("status"),
		readline.PcItem(cmdEnable),
		readline.PcItem(cmdDisable),
		readline.PcItem(cmdClearNotification),
	}
	for _, name := range logic.ParameterNames() {
		items = append(items, readline.PcItem(name+"="))
	}
	return readline.NewPrefixCompleter(items...)
}

// historyFilePath returns the console history file, or "" for none.
func historyFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "hvac-controller")
	_ = os.MkdirAll(dir, 0o750)
	return filepath.Join(dir, "console_history")
}
