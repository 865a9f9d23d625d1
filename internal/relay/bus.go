package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/audit"
	"github.com/nerrad567/gray-logic-hmi/internal/control"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

const (
	defaultOutboxSize = 1024
	commandTimeout    = 5 * time.Second
	drainTimeout      = 2 * time.Second
	mqttUserID        = "mqtt"
)

// MQTTClient is the subset of *mqtt.Client the bus uses.
type MQTTClient interface {
	PublishJSON(topic string, v any, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	Topics() mqtt.Topics
	QoS() byte
}

// Commander performs PLC writes. *control.Service implements it.
type Commander interface {
	SetTrue(ctx context.Context, id string, actor control.Actor) error
	SetFalse(ctx context.Context, id string, actor control.Actor) error
	SetValue(ctx context.Context, id, raw string, actor control.Actor) error
}

// ActiveCounter reports active list sizes. *alarm.State implements it.
type ActiveCounter interface {
	Count() int
	CountKind(kind alarm.Kind) int
}

// Logger is the optional logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Bus publishes the machine's observable state over MQTT and turns
// command topics into PLC writes.
//
// Alarm events arrive through an alarm.Notifier and are published inline.
// Point and statistics updates arrive on the dispatcher goroutine, so they
// are queued to an outbox drained by Run; a full outbox drops the update.
type Bus struct {
	client   MQTTClient
	counter  ActiveCounter
	commands Commander

	outbox  chan func()
	dropped atomic.Uint64
	ran     atomic.Bool

	ctx context.Context //nolint:containedctx // command writes are bounded by Run's context

	logger   Logger
	loggerMu sync.RWMutex
}

var _ alarm.Handler = (*Bus)(nil)

// NewBus returns a bus publishing through client. counter may be nil.
func NewBus(client MQTTClient, counter ActiveCounter) *Bus {
	return &Bus{
		client:  client,
		counter: counter,
		outbox:  make(chan func(), defaultOutboxSize),
		ctx:     context.Background(),
	}
}

// SetCommander enables the command subscription. Call before Run.
func (b *Bus) SetCommander(c Commander) {
	b.commands = c
}

// SetLogger sets the logger.
func (b *Bus) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

// Dropped returns how many queued updates were discarded.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Run subscribes to command topics (when a commander is set) and drains the
// outbox until ctx is cancelled. Queued updates are flushed on the way out
// and the command subscription is dropped.
func (b *Bus) Run(ctx context.Context) error {
	if !b.ran.CompareAndSwap(false, true) {
		return errors.New("relay: bus already running")
	}
	b.ctx = ctx

	if b.commands != nil {
		topics := b.client.Topics()
		if err := b.client.Subscribe(topics.AllCommands(), b.client.QoS(), b.handleCommand); err != nil {
			return fmt.Errorf("subscribing to commands: %w", err)
		}
		b.logInfo("subscribed to command topics", "topic", topics.AllCommands())
	}

	for {
		select {
		case <-ctx.Done():
			b.drain()
			b.unsubscribe()
			return nil
		case job := <-b.outbox:
			job()
		}
	}
}

func (b *Bus) unsubscribe() {
	if b.commands == nil || !b.client.IsConnected() {
		return
	}
	if err := b.client.Unsubscribe(b.client.Topics().AllCommands()); err != nil {
		b.logWarn("unsubscribing from command topics failed", "error", err)
	}
}

func (b *Bus) drain() {
	deadline := time.After(drainTimeout)
	for {
		select {
		case job := <-b.outbox:
			job()
		case <-deadline:
			return
		default:
			return
		}
	}
}

func (b *Bus) enqueue(job func()) {
	select {
	case b.outbox <- job:
	default:
		if b.dropped.Add(1) == 1 {
			b.logWarn("MQTT outbox full, dropping updates")
		}
	}
}

// HandleEvent publishes an edge and the new active count.
func (b *Bus) HandleEvent(_ context.Context, ev alarm.Event) error {
	if !b.client.IsConnected() {
		return nil
	}

	topics := b.client.Topics()
	if err := b.client.PublishJSON(topics.Alarm(), newEventMessage(ev), false); err != nil {
		return fmt.Errorf("publishing %s: %w", ev.Type, err)
	}

	active := ActiveMessage{Count: ev.ActiveCount, Timestamp: ev.At}
	if b.counter != nil {
		active.Alarms = b.counter.CountKind(alarm.KindAlarm)
		active.Infos = b.counter.CountKind(alarm.KindInfo)
	}
	if err := b.publishRetained(topics.AlarmActive(), active); err != nil {
		return fmt.Errorf("publishing active count: %w", err)
	}
	return nil
}

// PublishChanges queues retained point values. Safe to call from the
// dispatcher goroutine.
func (b *Bus) PublishChanges(changes []points.Change) {
	if len(changes) == 0 {
		return
	}
	msgs := make([]PointMessage, len(changes))
	for i, c := range changes {
		msgs[i] = newPointMessage(c)
	}

	b.enqueue(func() {
		if !b.client.IsConnected() {
			return
		}
		topics := b.client.Topics()
		for _, m := range msgs {
			if err := b.publishRetained(topics.Point(m.Table, m.Name), m); err != nil {
				b.logWarn("publishing point failed", "table", m.Table, "name", m.Name, "error", err)
				return
			}
		}
	})
}

// PublishStatistics queues the retained statistics message.
func (b *Bus) PublishStatistics(s points.Statistics) {
	msg := newStatisticsMessage(s)
	b.enqueue(func() {
		if !b.client.IsConnected() {
			return
		}
		if err := b.publishRetained(b.client.Topics().Statistics(), msg); err != nil {
			b.logWarn("publishing statistics failed", "error", err)
		}
	})
}

// publishRetained marshals v for a state topic the broker keeps for late
// subscribers.
func (b *Bus) publishRetained(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", topic, err)
	}
	return b.client.PublishRetained(topic, payload)
}

// handleCommand processes a command message from the broker.
func (b *Bus) handleCommand(topic string, payload []byte) error {
	id, ok := b.client.Topics().CommandControl(topic)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(id, cmd, commandError(ErrCodeInvalidCommand, "payload is not valid JSON"))
		return fmt.Errorf("parsing command: %w", err)
	}

	b.logInfo("received command", "control", id, "action", cmd.Action, "command_id", cmd.ID)

	actor := control.Actor{UserID: cmd.UserID, Source: audit.SourceMQTT}
	if actor.UserID == "" {
		actor.UserID = mqttUserID
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	var err error
	switch cmd.Action {
	case ActionSetTrue:
		err = b.commands.SetTrue(ctx, id, actor)
	case ActionSetFalse:
		err = b.commands.SetFalse(ctx, id, actor)
	case ActionSetValue:
		err = b.commands.SetValue(ctx, id, cmd.Value, actor)
	default:
		b.publishAck(id, cmd, commandError(ErrCodeInvalidCommand, fmt.Sprintf("unknown action %q", cmd.Action)))
		return nil
	}

	if err != nil {
		b.publishAck(id, cmd, commandError(errorCode(err), err.Error()))
		return nil
	}
	b.publishAck(id, cmd, nil)
	return nil
}

func (b *Bus) publishAck(controlID string, cmd CommandMessage, ackErr *AckError) {
	ack := AckMessage{
		CommandID: cmd.ID,
		Control:   controlID,
		Status:    AckAccepted,
		Error:     ackErr,
		Timestamp: time.Now().UTC(),
	}
	if ackErr != nil {
		ack.Status = AckFailed
	}
	if err := b.client.PublishJSON(b.client.Topics().Ack(controlID), ack, false); err != nil {
		b.logWarn("publishing ack failed", "control", controlID, "error", err)
	}
}

func commandError(code, msg string) *AckError {
	return &AckError{Code: code, Message: msg}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, control.ErrUnknownControl):
		return ErrCodeUnknownControl
	case errors.Is(err, control.ErrNotBoolean), errors.Is(err, control.ErrInvalidValue):
		return ErrCodeInvalidValue
	case errors.Is(err, control.ErrNotConnected):
		return ErrCodeNotConnected
	default:
		return ErrCodeWriteFailed
	}
}

func (b *Bus) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bus) logInfo(msg string, args ...any) {
	if l := b.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (b *Bus) logWarn(msg string, args ...any) {
	if l := b.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}
