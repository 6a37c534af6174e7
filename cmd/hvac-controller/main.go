// Command hvac-controller runs the heat pump / furnace sequencer: it drives
// the equipment relays over GPIO, takes sensor readings and commands from
// MQTT, HTTP and an optional console, and publishes state and cycle events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/hvac-controller/internal/config"
	"github.com/sweeney/hvac-controller/internal/gpio"
	"github.com/sweeney/hvac-controller/internal/history"
	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/mqtt"
	"github.com/sweeney/hvac-controller/internal/status"
	"github.com/sweeney/hvac-controller/internal/store"
	"github.com/sweeney/hvac-controller/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML settings file (default: configs/hvac.yml if present)")
	envFile := flag.String("env", ".env", "dotenv file loaded before HVAC_* variables are read")
	printState := flag.Bool("print-state", false, "Print output levels and exit")
	withConsole := flag.Bool("console", false, "Interactive command console on the terminal")
	resetConfig := flag.Bool("reset-config", false, "Discard the stored controller configuration and start from defaults")

	flag.Parse()

	if err := run(*configPath, *envFile, *printState, *withConsole, *resetConfig); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, printState, withConsole, resetConfig bool) error {
	settings, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	var logOut io.Writer = os.Stdout
	if withConsole {
		logOut = rlWriter
	}
	log := logger.NewWithWriter(settings.LogLevel, logOut)
	defer log.Sync()

	pins := gpio.Pins{
		Fan:     settings.GPIO.PinFan,
		Cool:    settings.GPIO.PinCool,
		Reverse: settings.GPIO.PinReverse,
		Heat:    settings.GPIO.PinHeat,
	}
	outputs, err := gpio.NewRealOutputs(settings.GPIO.Chip, pins, log.Named("gpio"))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer outputs.Close()

	if printState {
		fmt.Println(outputs.Levels())
		return nil
	}

	cfgStore := store.New(settings.Store.Path)
	if resetConfig {
		if err := factoryReset(cfgStore, log); err != nil {
			return err
		}
	}
	cfg := loadControllerConfig(cfgStore, log)

	var hist *history.Log
	if settings.History.Path != "" {
		hist, err = history.Open(settings.History.Path)
		if err != nil {
			log.Warnw("cycle history disabled", "path", settings.History.Path, "err", err)
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	wsBroker, err := resolveWSBroker(settings.MQTT.WSBroker, settings.MQTT.Broker)
	if err != nil {
		log.Warnw("live broker url disabled", "err", err)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   settings.MQTT.Broker,
		ClientID: settings.MQTT.ClientID,
		Username: settings.MQTT.Username,
		Password: settings.MQTT.Password,
		Topics:   mqtt.NewTopics(settings.MQTT.Prefix),
	}, log.Named("mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      settings.Tick.Milliseconds(),
		HeartbeatMs: settings.Heartbeat.Milliseconds(),
		Broker:      settings.MQTT.Broker,
		Prefix:      settings.MQTT.Prefix,
		HTTPAddr:    settings.HTTP.Addr,
		WSBroker:    wsBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	ctrl := logic.New(cfg, outputs)
	ctrl.Enable()

	d := &daemon{
		ctrl:       ctrl,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		store:      cfgStore,
		log:        log,
		now:        time.Now,
		heartbeat:  settings.Heartbeat,
		autosave:   settings.Store.Autosave,
	}
	if hist != nil {
		d.history = hist
	}
	d.start()

	reqs := make(chan request)
	queue := commandQueue(reqs)

	if settings.HTTP.Addr != "" {
		gin.SetMode(gin.ReleaseMode)
		opts := web.Options{Commander: queue, Logger: log.Named("http")}
		if hist != nil {
			opts.History = hist
		}
		srv := web.New(settings.HTTP.Addr, tracker, opts)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		log.Infow("http server listening", "addr", settings.HTTP.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if withConsole {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c, err := newConsole(queue, tracker)
		if err != nil {
			return fmt.Errorf("init console: %w", err)
		}
		defer c.Close()
		go c.loop(ctx, sigCh)
	}

	log.Infow("started",
		"tick", settings.Tick,
		"broker", settings.MQTT.Broker,
		"prefix", settings.MQTT.Prefix,
		"heartbeat", settings.Heartbeat,
		"mode", cfg.Mode,
		"heat_mode", cfg.HeatMode,
	)

	ticker := time.NewTicker(settings.Tick)
	defer ticker.Stop()

	return d.run(ticker.C, sigCh, publisher.Messages(), reqs)
}

// factoryReset removes the stored controller configuration so the next load
// falls back to defaults.
func factoryReset(s *store.Store, log *logger.Logger) error {
	if err := s.Clear(); err != nil {
		return fmt.Errorf("reset config: %w", err)
	}
	log.Warnw("stored config cleared, starting from defaults", "path", s.Path())
	return nil
}

// loadControllerConfig reads the persisted configuration, falling back to
// defaults when it is missing, unreadable or from another layout version.
func loadControllerConfig(s *store.Store, log *logger.Logger) logic.Config {
	cfg, found, err := s.Load()
	switch {
	case errors.Is(err, store.ErrIncompatible):
		log.Warnw("stored config has another version, using defaults", "path", s.Path(), "err", err)
		return logic.DefaultConfig()
	case err != nil:
		log.Errorw("cannot read stored config, using defaults", "path", s.Path(), "err", err)
		return logic.DefaultConfig()
	case !found:
		log.Infow("no stored config, using defaults", "path", s.Path())
		return logic.DefaultConfig()
	}
	return cfg
}
