package main

import (
	"bytes"
	"context"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/mqtt"
	"github.com/sweeney/hvac-controller/internal/status"
)

const (
	// pushInterval refreshes displays even when nothing changed.
	pushInterval = time.Minute
	// historyRetention bounds the cycle log; pruned once a day.
	historyRetention = 365 * 24 * time.Hour
	pruneInterval    = 24 * time.Hour
	storeTimeout     = 2 * time.Second
)

// eventLog stores cycle events.
type eventLog interface {
	Append(ctx context.Context, e logic.Event) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// configSaver persists the controller configuration.
type configSaver interface {
	Save(cfg logic.Config) error
}

// request runs fn against the controller on the loop goroutine. done, if
// set, receives fn's result.
type request struct {
	fn   func(*logic.Controller) error
	done chan error
}

// daemon owns the controller. Every controller call happens on the goroutine
// running run, so Tick and the setters never overlap.
type daemon struct {
	ctrl       *logic.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	history    eventLog    // optional
	store      configSaver // optional
	log        *logger.Logger
	now        func() time.Time

	heartbeat time.Duration // 0 disables
	autosave  time.Duration // 0 disables periodic saves

	lastPush      time.Time
	lastHeartbeat time.Time
	lastSave      time.Time
	lastPrune     time.Time
	savedCfg      logic.Config
	lastSettings  []byte
}

// start publishes STARTUP and seeds the periodic timers.
func (d *daemon) start() {
	t := d.now()
	d.lastPush = t
	d.lastHeartbeat = t
	d.lastSave = t
	d.savedCfg = d.ctrl.Config()
	d.refresh()
	d.prune(t)

	d.publishSystem("STARTUP", "", true)
	d.publishState()
	d.publishSettings()
}

// run processes ticks, inbound messages and requests until a signal arrives.
func (d *daemon) run(tick <-chan time.Time, sig <-chan os.Signal, msgs <-chan mqtt.Message, reqs <-chan request) error {
	for {
		select {
		case s := <-sig:
			d.shutdown(s)
			return nil
		case <-tick:
			d.handleTick()
		case m := <-msgs:
			d.handleMessage(m)
		case r := <-reqs:
			d.handleRequest(r)
		}
	}
}

func (d *daemon) handleTick() {
	t := d.now()
	for _, e := range d.ctrl.Tick() {
		d.record(e)
	}
	d.refresh()

	if d.ctrl.StateChanged() || t.Sub(d.lastPush) >= pushInterval {
		d.lastPush = t
		d.publishState()
	}
	d.publishSettings()

	if d.heartbeat > 0 && t.Sub(d.lastHeartbeat) >= d.heartbeat {
		d.lastHeartbeat = t
		if net := readNetworkInfo(); net != nil {
			d.tracker.SetNetwork(net)
		}
		d.log.Infow("heartbeat",
			"state", d.ctrl.State(),
			"mode", d.ctrl.Mode(),
			"target", d.ctrl.Target(),
		)
		d.publishSystem("HEARTBEAT", "", false)
	}

	if d.autosave > 0 && t.Sub(d.lastSave) >= d.autosave {
		d.lastSave = t
		d.save()
	}
	if t.Sub(d.lastPrune) >= pruneInterval {
		d.prune(t)
	}
}

func (d *daemon) record(e logic.Event) {
	d.log.Infow("event",
		"type", e.Type,
		"mode", e.Mode,
		"source", e.Source,
		"reason", e.Reason,
		"cycle_s", e.CycleSeconds,
		"indoor", e.Indoor,
		"target", e.Target,
	)
	if d.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := d.history.Append(ctx, e); err != nil {
			d.log.Errorw("record event", "type", e.Type, "err", err)
		}
		cancel()
	}
	if err := d.publisher.Publish(e); err != nil {
		d.log.Warnw("publish event", "type", e.Type, "err", err)
	}
}

func (d *daemon) handleMessage(m mqtt.Message) {
	if err := applyMessage(d.ctrl, m); err != nil {
		d.log.Warnw("rejected message", "kind", m.Kind, "name", m.Name, "err", err)
	}
	d.refresh()
}

func (d *daemon) handleRequest(r request) {
	err := r.fn(d.ctrl)
	if r.done != nil {
		r.done <- err
	}
	d.refresh()
}

func (d *daemon) refresh() {
	d.tracker.Update(d.ctrl.Status(), d.ctrl.Config())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// shutdown de-energises the equipment before anything else, then saves and
// says goodbye.
func (d *daemon) shutdown(s os.Signal) {
	d.ctrl.Disable()
	d.log.Infow("shutting down", "signal", s)
	d.refresh()
	d.save()
	d.publishSystem("SHUTDOWN", signalName(s), true)
}

func (d *daemon) save() {
	if d.store == nil {
		return
	}
	cfg := d.ctrl.Config()
	if cfg == d.savedCfg {
		return
	}
	if err := d.store.Save(cfg); err != nil {
		d.log.Errorw("save config", "err", err)
		return
	}
	d.savedCfg = cfg
	d.log.Debugw("config saved")
}

func (d *daemon) prune(t time.Time) {
	d.lastPrune = t
	if d.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	n, err := d.history.Prune(ctx, t.Add(-historyRetention))
	if err != nil {
		d.log.Warnw("prune history", "err", err)
		return
	}
	if n > 0 {
		d.log.Infow("pruned history", "rows", n)
	}
}

func (d *daemon) publishState() {
	if err := d.publisher.PublishState(status.FormatPushData(d.ctrl.Status())); err != nil {
		d.log.Debugw("publish state", "err", err)
	}
}

// publishSettings sends the settings document when it differs from the last
// one delivered.
func (d *daemon) publishSettings() {
	payload := status.FormatSettings(d.ctrl.Status(), d.ctrl.Config())
	if bytes.Equal(payload, d.lastSettings) {
		return
	}
	if err := d.publisher.PublishSettings(payload); err != nil {
		d.log.Debugw("publish settings", "err", err)
		return
	}
	d.lastSettings = payload
}

func (d *daemon) publishSystem(event, reason string, retained bool) {
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.log.Warnw("publish system event", "event", event, "err", err)
		return
	}
	d.log.Infow("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
