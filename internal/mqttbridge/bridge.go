package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/normanctl/internal/config"
	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/logging"
)

const (
	connectTimeout  = 10 * time.Second
	publishTimeout  = 5 * time.Second
	disconnectQuiet = 250 // milliseconds
)

// Controller is the coordinator surface the bridge uses.
type Controller interface {
	Subscribe(fn func(coordinator.Snapshot)) (cancel func())
	DeviceCovers() []coordinator.DeviceCover
	RoomCovers() []coordinator.RoomCover

	SetDevicePosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	SetRoomPosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	OpenDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	CloseDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	OpenRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	CloseRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	ApplyRoomPreset(ctx context.Context, id gateway.ID, name string) (gateway.PositionCommand, error)
}

// Publisher sends one MQTT message. *pahoPublisher is the production implementation.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// Bridge mirrors coordinator state to MQTT and turns command topics into
// gateway commands.
type Bridge struct {
	cfg    config.MQTTConfig
	topics Topics
	ctrl   Controller

	mu          sync.Mutex
	ctx         context.Context
	client      mqtt.Client
	pub         Publisher
	unsubscribe func()
}

// New creates a bridge. Call Start to connect.
func New(cfg config.MQTTConfig, ctrl Controller) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = config.DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "normanctl-" + uuid.NewString()[:8]
	}
	return &Bridge{
		cfg:    cfg,
		topics: Topics{Prefix: cfg.TopicPrefix},
		ctrl:   ctrl,
		ctx:    context.Background(),
	}
}

// Topics returns the bridge's topic layout.
func (b *Bridge) Topics() Topics { return b.topics }

// Start connects to the broker, subscribes to command topics and begins
// publishing every coordinator refresh. ctx bounds the commands the bridge
// issues.
func (b *Bridge) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetWill(b.topics.Status(), PayloadOffline, b.cfg.QoS, true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(b.onConnect)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logging.Warn("MQTT broker not reachable yet; retrying in background", zap.String("broker", b.cfg.Broker))
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("connect to MQTT broker %s: %w", b.cfg.Broker, err)
	}

	b.mu.Lock()
	b.ctx = ctx
	b.client = client
	b.pub = &pahoPublisher{client: client, qos: b.cfg.QoS}
	b.unsubscribe = b.ctrl.Subscribe(b.PublishSnapshot)
	b.mu.Unlock()
	return nil
}

// onConnect runs after every (re)connect.
func (b *Bridge) onConnect(client mqtt.Client) {
	logging.Info("MQTT connected", zap.String("broker", b.cfg.Broker), zap.String("client_id", b.cfg.ClientID))

	for _, filter := range b.topics.CommandFilters() {
		token := client.Subscribe(filter, b.cfg.QoS, b.onMessage)
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			logging.Error("MQTT subscribe failed", zap.String("filter", filter), zap.Error(token.Error()))
		}
	}
	client.Publish(b.topics.Status(), b.cfg.QoS, true, PayloadOnline)
}

// onMessage receives command messages. Retained commands are replayed by the
// broker on every subscribe and would move the blinds again after each
// reconnect, so only live messages are executed.
func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if msg.Retained() {
		logging.Debug("Ignoring retained MQTT command", zap.String("topic", msg.Topic()))
		return
	}
	b.HandleMessage(msg.Topic(), msg.Payload())
}

// Stop publishes offline and disconnects.
func (b *Bridge) Stop() {
	b.mu.Lock()
	client := b.client
	unsubscribe := b.unsubscribe
	b.client = nil
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if client == nil {
		return
	}
	if client.IsConnected() {
		client.Publish(b.topics.Status(), b.cfg.QoS, true, PayloadOffline).WaitTimeout(publishTimeout)
	}
	client.Disconnect(disconnectQuiet)
}

// PublishSnapshot publishes gateway health and the state of every window and room.
func (b *Bridge) PublishSnapshot(snap coordinator.Snapshot) {
	b.mu.Lock()
	pub := b.pub
	b.mu.Unlock()
	if pub == nil {
		return
	}

	b.publishJSON(pub, b.topics.Gateway(), NewGatewayState(snap))
	for _, c := range b.ctrl.DeviceCovers() {
		b.publishJSON(pub, b.topics.State(KindWindow, c.ID), NewWindowState(c))
	}
	for _, c := range b.ctrl.RoomCovers() {
		b.publishJSON(pub, b.topics.State(KindRoom, c.ID), NewRoomState(c))
	}
}

func (b *Bridge) publishJSON(pub Publisher, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error("Encode MQTT payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := pub.Publish(topic, b.cfg.Retain, payload); err != nil {
		logging.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// HandleMessage executes a command message. Unknown topics and malformed
// payloads are logged and dropped.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	if err := b.handle(topic, payload); err != nil {
		logging.Warn("MQTT command rejected",
			zap.String("topic", topic),
			zap.ByteString("payload", payload),
			zap.Error(err),
		)
	}
}

func (b *Bridge) handle(topic string, payload []byte) error {
	kind, id, ok := b.topics.ParseCommandTopic(topic)
	if !ok {
		return fmt.Errorf("not a command topic")
	}
	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	logging.Info("MQTT command",
		zap.String("kind", string(kind)),
		zap.String("id", id.String()),
		zap.ByteString("payload", payload),
	)

	switch kind {
	case KindWindow:
		switch cmd.Action {
		case ActionOpen:
			_, err = b.ctrl.OpenDevice(ctx, id)
		case ActionClose:
			_, err = b.ctrl.CloseDevice(ctx, id)
		case ActionPosition:
			_, err = b.ctrl.SetDevicePosition(ctx, id, cmd.OpenPercent)
		case ActionPreset:
			err = gateway.NewValidationError("presets apply to rooms only")
		}
	case KindRoom:
		switch cmd.Action {
		case ActionOpen:
			_, err = b.ctrl.OpenRoom(ctx, id)
		case ActionClose:
			_, err = b.ctrl.CloseRoom(ctx, id)
		case ActionPosition:
			_, err = b.ctrl.SetRoomPosition(ctx, id, cmd.OpenPercent)
		case ActionPreset:
			_, err = b.ctrl.ApplyRoomPreset(ctx, id, cmd.Preset)
		}
	}
	return err
}

type pahoPublisher struct {
	client mqtt.Client
	qos    byte
}

func (p *pahoPublisher) Publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	return token.Error()
}
