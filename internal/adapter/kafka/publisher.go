package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/signalsfoundry/holo-globe/internal/config"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/model"
)

const (
	publishOK    = "ok"
	publishError = "error"
)

// PublishRecorder counts broker hand-offs.
// observability.EngineCollector implements it.
type PublishRecorder interface {
	ObservePublish(result string)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ClickEvent is the payload published for every accepted click. Downstream
// consumers use it to trigger region briefings.
type ClickEvent struct {
	InteractionID string            `json:"interaction_id"`
	Coordinates   model.Coordinates `json:"coords"`
	Region        string            `json:"region,omitempty"`
	RegionID      string            `json:"region_id,omitempty"`
	SelectedAt    time.Time         `json:"selected_at"`
}

// ClickPublisher forwards click results to a Kafka topic. It implements
// engine.PickSink; hovers are not published.
//
// The underlying writer runs asynchronously so Click never blocks the engine
// loop; delivery results arrive on the writer's completion callback.
type ClickPublisher struct {
	writer  messageWriter
	clock   clockwork.Clock
	log     logging.Logger
	metrics PublishRecorder
}

// NewClickPublisher creates an async producer for the configured topic.
func NewClickPublisher(cfg config.KafkaConfig, log logging.Logger, metrics PublishRecorder) *ClickPublisher {
	p := &ClickPublisher{
		clock:   clockwork.NewRealClock(),
		log:     logging.OrNoop(log),
		metrics: metrics,
	}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   p.completed,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			p.log.Warn(context.Background(), "kafka writer", logging.String("detail", fmt.Sprintf(msg, args...)))
		}),
	}
	return p
}

func newClickPublisher(w messageWriter, clock clockwork.Clock, log logging.Logger, metrics PublishRecorder) *ClickPublisher {
	return &ClickPublisher{writer: w, clock: clock, log: logging.OrNoop(log), metrics: metrics}
}

// Hover is a no-op; hover results are too frequent to publish.
func (p *ClickPublisher) Hover(context.Context, *model.PickResult) {}

// Click hands the result to the writer.
func (p *ClickPublisher) Click(ctx context.Context, res model.PickResult) {
	msg, err := serializeClick(ClickEvent{
		InteractionID: logging.InteractionIDFromContext(ctx),
		Coordinates:   res.Coordinates,
		Region:        res.Region,
		RegionID:      res.RegionID,
		SelectedAt:    p.clock.Now().UTC(),
	})
	if err != nil {
		p.log.Error(ctx, "serialize click failed", logging.Err(err))
		p.observe(publishError)
		return
	}
	// The async writer only queues; a cancelled request must not drop it.
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Warn(ctx, "publish click failed", logging.Err(err))
		p.observe(publishError)
	}
}

// Close flushes pending messages and closes the writer.
func (p *ClickPublisher) Close() error {
	return p.writer.Close()
}

func (p *ClickPublisher) completed(msgs []kafkago.Message, err error) {
	if err != nil {
		p.log.Warn(context.Background(), "click delivery failed",
			logging.Int("messages", len(msgs)),
			logging.Err(err),
		)
		for range msgs {
			p.observe(publishError)
		}
		return
	}
	for range msgs {
		p.observe(publishOK)
	}
}

func (p *ClickPublisher) observe(result string) {
	if p.metrics != nil {
		p.metrics.ObservePublish(result)
	}
}

// serializeClick marshals a ClickEvent into a Kafka message keyed by the
// interaction ID.
func serializeClick(ev ClickEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize click event: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "event_type", Value: []byte("click")},
		{Key: "selected_at", Value: []byte(ev.SelectedAt.Format(time.RFC3339))},
	}
	if ev.RegionID != "" {
		headers = append(headers, kafkago.Header{Key: "region_id", Value: []byte(ev.RegionID)})
	}
	return kafkago.Message{
		Key:     []byte(ev.InteractionID),
		Value:   data,
		Headers: headers,
		Time:    ev.SelectedAt,
	}, nil
}
