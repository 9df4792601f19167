// Package bridge publishes bus events and reconstructed button gestures to
// an MQTT broker, turning the driver into a standalone automation bridge.
package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/luxgrid/dalinet/dali"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
)

// Config holds the broker connection and topic settings.
type Config struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Bridge pumps a client's event and gesture streams to MQTT.
type Bridge struct {
	cfg    Config
	client *dali.Client
	mqtt   pahomqtt.Client
	logger *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a bridge over an already-connected DALI client.
func New(cfg Config, client *dali.Client, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "dalinet"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dalinet-bridge"
	}
	return &Bridge{
		cfg:    cfg,
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start connects to the broker and begins publishing. The status topic
// carries a retained online/offline marker; an unclean disconnect flips it
// through the broker's last-will mechanism.
func (b *Bridge) Start() error {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(b.cfg.BrokerURL)
	opts.SetClientID(b.cfg.ClientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetBinaryWill(b.statusTopic(), statusPayload(b.cfg.ClientID, false), b.cfg.QoS, true)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		b.publish(b.statusTopic(), statusPayload(b.cfg.ClientID, true), true)
	})

	b.mqtt = pahomqtt.NewClient(opts)
	token := b.mqtt.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("bridge: broker connect timeout after %v", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("bridge: broker connect: %w", err)
	}

	b.wg.Add(1)
	go b.pump()

	b.logger.Info("bridge started", "broker", b.cfg.BrokerURL, "prefix", b.cfg.TopicPrefix)
	return nil
}

// Close publishes the graceful offline status and disconnects.
func (b *Bridge) Close() error {
	b.stopOnce.Do(func() { close(b.done) })
	b.wg.Wait()

	if b.mqtt != nil && b.mqtt.IsConnected() {
		b.publish(b.statusTopic(), statusPayload(b.cfg.ClientID, false), true)
		b.mqtt.Disconnect(disconnectQuiesce)
	}
	b.logger.Info("bridge stopped")
	return nil
}

// pump forwards both client streams until Close.
func (b *Bridge) pump() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case g := <-b.client.Gestures():
			b.publishGesture(g)
		case ev := <-b.client.Events():
			b.publishEvent(ev)
		}
	}
}

func (b *Bridge) publishGesture(g dali.Gesture) {
	payload, err := json.Marshal(gesturePayload{
		Kind:     g.Key.Kind.String(),
		Address:  g.Key.Address,
		Instance: g.Key.Instance,
		Gesture:  g.Code.String(),
		Time:     g.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	b.publish(GestureTopic(b.cfg.TopicPrefix, g.Key), payload, false)
}

func (b *Bridge) publishEvent(ev dali.Event) {
	p := eventPayload{
		Type: ev.Message.Type().String(),
		Time: ev.Time.UTC().Format(time.RFC3339Nano),
	}
	switch m := ev.Message.(type) {
	case dali.SpecialEvent:
		p.Detail = m.Code.String()
		p.Fault = m.Code.Fault()
	case dali.RecvAnswerSpont:
		p.Frame = fmt.Sprintf("% X", m.Frame)
		p.Collision = m.Collision()
	case dali.RecvNoAnswerSpont:
		p.Frame = fmt.Sprintf("% X", m.Frame)
	}
	if ev.Input != nil {
		p.Input = &inputPayload{
			Kind:     ev.Input.Kind.String(),
			Address:  ev.Input.Address,
			Instance: ev.Input.Instance,
			Code:     ev.Input.Code.String(),
		}
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	b.publish(EventTopic(b.cfg.TopicPrefix, ev.Message.Type()), payload, false)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.mqtt.Publish(topic, b.cfg.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		b.logger.Warn("publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		b.logger.Warn("publish failed", "topic", topic, "error", err)
	}
}

func (b *Bridge) statusTopic() string {
	return b.cfg.TopicPrefix + "/status"
}

// GestureTopic builds the topic one button's gestures publish to.
func GestureTopic(prefix string, key dali.ButtonKey) string {
	return fmt.Sprintf("%s/gesture/%s/%d/%d", prefix, key.Kind, key.Address, key.Instance)
}

// EventTopic builds the topic a spontaneous message type publishes to.
func EventTopic(prefix string, t dali.MessageType) string {
	return fmt.Sprintf("%s/event/%s", prefix, t)
}

type gesturePayload struct {
	Kind     string `json:"kind"`
	Address  uint8  `json:"address"`
	Instance uint8  `json:"instance"`
	Gesture  string `json:"gesture"`
	Time     string `json:"time"`
}

type inputPayload struct {
	Kind     string `json:"kind"`
	Address  uint8  `json:"address"`
	Instance uint8  `json:"instance"`
	Code     string `json:"code"`
}

type eventPayload struct {
	Type      string        `json:"type"`
	Detail    string        `json:"detail,omitempty"`
	Fault     bool          `json:"fault,omitempty"`
	Frame     string        `json:"frame,omitempty"`
	Collision bool          `json:"collision,omitempty"`
	Input     *inputPayload `json:"input,omitempty"`
	Time      string        `json:"time"`
}

func statusPayload(clientID string, online bool) []byte {
	status := "offline"
	if online {
		status = "online"
	}
	payload, _ := json.Marshal(map[string]string{
		"client_id": clientID,
		"status":    status,
	})
	return payload
}
