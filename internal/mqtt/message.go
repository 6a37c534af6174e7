package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/hvac-controller/internal/logic"
)

// ErrMalformed wraps every inbound payload that cannot be parsed.
var ErrMalformed = errors.New("malformed message")

// ErrUnknownTopic is returned by ParseMessage for a topic outside Inbound.
var ErrUnknownTopic = errors.New("unknown topic")

// Kind tells the run loop which controller entry point a Message feeds.
type Kind uint8

const (
	KindCommand Kind = iota + 1
	KindIndoor
	KindOutdoor
	KindPeaks
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindIndoor:
		return "indoor"
	case KindOutdoor:
		return "outdoor"
	case KindPeaks:
		return "peaks"
	}
	return "unknown"
}

// Message is a parsed inbound message. Only the fields for its Kind are set.
type Message struct {
	Kind     Kind
	Name     string // KindCommand
	Value    int    // KindCommand
	Temp     logic.Tenths
	Humidity int
	Min, Max logic.Tenths
}

type commandJSON struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type sensorJSON struct {
	Temp *int `json:"temp"`
	RH   int  `json:"rh"`
}

type peaksJSON struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// ParseMessage decodes a payload received on one of t.Inbound().
func ParseMessage(t Topics, topic string, payload []byte) (Message, error) {
	switch topic {
	case t.Set:
		return parseCommand(payload)
	case t.Indoor, t.Outdoor:
		var s sensorJSON
		if err := json.Unmarshal(payload, &s); err != nil {
			return Message{}, fmt.Errorf("%w: %s: %v", ErrMalformed, topic, err)
		}
		if s.Temp == nil {
			return Message{}, fmt.Errorf("%w: %s: missing temp", ErrMalformed, topic)
		}
		if topic == t.Outdoor {
			return Message{Kind: KindOutdoor, Temp: logic.Tenths(*s.Temp)}, nil
		}
		return Message{Kind: KindIndoor, Temp: logic.Tenths(*s.Temp), Humidity: s.RH}, nil
	case t.Peaks:
		var p peaksJSON
		if err := json.Unmarshal(payload, &p); err != nil {
			return Message{}, fmt.Errorf("%w: %s: %v", ErrMalformed, topic, err)
		}
		if p.Min == nil || p.Max == nil {
			return Message{}, fmt.Errorf("%w: %s: need min and max", ErrMalformed, topic)
		}
		return Message{Kind: KindPeaks, Min: logic.Tenths(*p.Min), Max: logic.Tenths(*p.Max)}, nil
	}
	return Message{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// parseCommand accepts "name=value" or {"name":"...","value":n}. The value
// may be a JSON number or a numeric string.
func parseCommand(payload []byte) (Message, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '{' {
		var c commandJSON
		if err := json.Unmarshal(payload, &c); err != nil {
			return Message{}, fmt.Errorf("%w: set: %v", ErrMalformed, err)
		}
		raw := strings.Trim(string(c.Value), `"`)
		return command(c.Name, raw)
	}
	name, value, ok := strings.Cut(string(payload), "=")
	if !ok {
		return Message{}, fmt.Errorf("%w: set: want name=value", ErrMalformed)
	}
	return command(name, value)
}

func command(name, value string) (Message, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Message{}, fmt.Errorf("%w: set: empty name", ErrMalformed)
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return Message{}, fmt.Errorf("%w: set %s: %v", ErrMalformed, name, err)
	}
	return Message{Kind: KindCommand, Name: name, Value: v}, nil
}
