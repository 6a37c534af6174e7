package main

import (
	"context"
	"strings"

	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/mqtt"
)

// Command names handled here rather than by SetParameter.
const (
	cmdEnable            = "enable"
	cmdDisable           = "disable"
	cmdClearNotification = "clearnotification"
)

// commandQueue hands parameter changes to the run loop and waits for the
// result.
type commandQueue chan<- request

// Submit implements web.Commander.
func (q commandQueue) Submit(ctx context.Context, name string, value int) error {
	r := request{
		fn:   func(c *logic.Controller) error { return applyCommand(c, name, value) },
		done: make(chan error, 1),
	}
	select {
	case q <- r:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func applyCommand(c *logic.Controller, name string, value int) error {
	switch strings.ToLower(name) {
	case cmdEnable:
		c.Enable()
		return nil
	case cmdDisable:
		c.Disable()
		return nil
	case cmdClearNotification:
		c.ClearNotification()
		return nil
	}
	return c.SetParameter(name, value)
}

func applyMessage(c *logic.Controller, m mqtt.Message) error {
	switch m.Kind {
	case mqtt.KindCommand:
		return applyCommand(c, m.Name, m.Value)
	case mqtt.KindIndoor:
		c.UpdateIndoorTemp(m.Temp, m.Humidity)
	case mqtt.KindOutdoor:
		c.UpdateOutdoorTemp(m.Temp)
	case mqtt.KindPeaks:
		c.UpdatePeaks(m.Min, m.Max)
	}
	return nil
}
