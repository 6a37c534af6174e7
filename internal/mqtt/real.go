package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// DefaultBufferSize is how many events are held while disconnected.
	DefaultBufferSize = 100
	inboundQueue      = 32
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     Topics
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker and feeds inbound
// messages to Messages().
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logger.Logger
	msgs   chan Message

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher and starts connecting. A broker that is
// down at startup is not an error: the client keeps retrying in the background
// and events are buffered until it connects.
func NewRealPublisher(o Options, log *logger.Logger) (*RealPublisher, error) {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	p := &RealPublisher{
		topics: o.Topics,
		log:    log,
		msgs:   make(chan Message, inboundQueue),
		buf:    newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "LWT", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(o.Topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warnw("mqtt broker not reachable yet, retrying in background", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Messages delivers parsed inbound messages. Messages arriving while the
// queue is full are dropped.
func (p *RealPublisher) Messages() <-chan Message {
	return p.msgs
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Infow("mqtt connected")

	for _, topic := range p.topics.Inbound() {
		token := c.Subscribe(topic, 1, p.onMessage)
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			p.log.Errorw("mqtt subscribe failed", "topic", topic, "err", token.Error())
		}
	}

	p.mu.Lock()
	pending, dropped := p.buf.drainAll()
	p.mu.Unlock()
	if len(pending) == 0 {
		return
	}
	p.log.Infow("replaying buffered messages", "count", len(pending), "dropped", dropped)
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err == nil {
		c.Publish(p.topics.System, 1, false, payload)
	}
}

func (p *RealPublisher) onMessage(_ paho.Client, m paho.Message) {
	msg, err := ParseMessage(p.topics, m.Topic(), m.Payload())
	if err != nil {
		p.log.Warnw("ignoring inbound message", "topic", m.Topic(), "err", err)
		return
	}
	select {
	case p.msgs <- msg:
	default:
		p.log.Warnw("inbound queue full, dropping message", "topic", m.Topic())
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// publish sends payload, or holds it for replay when buffer is set and the
// broker is unreachable.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte, buffer bool) error {
	if !p.client.IsConnectionOpen() {
		if !buffer {
			return ErrNotConnected
		}
		p.mu.Lock()
		first := p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		if first {
			p.log.Warnw("mqtt buffer full, dropping oldest", "capacity", len(p.buf.buf))
		}
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Publish sends a cycle event.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(p.topics.Events, 1, false, payload, true)
}

// PublishState sends the retained push data. Stale state is not buffered.
func (p *RealPublisher) PublishState(payload []byte) error {
	return p.publish(p.topics.State, 0, true, payload, false)
}

// PublishSettings sends the retained settings document.
func (p *RealPublisher) PublishSettings(payload []byte) error {
	return p.publish(p.topics.Settings, 0, true, payload, false)
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(p.topics.System, 1, event.Retained, payload, true)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
