package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wallrot/wallrot/internal/logger"
	"github.com/wallrot/wallrot/internal/rotator"
)

// CurrentSuffix is appended to the base topic for current-image events.
const CurrentSuffix = "/current"

// EventMessage is the JSON body published for each displayed image.
type EventMessage struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Size      int       `json:"size,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventMessage converts a successful rotator event.
func NewEventMessage(ev rotator.Event) EventMessage {
	return EventMessage{
		ID:        ev.ID,
		Index:     ev.Index,
		Total:     ev.Total,
		URL:       ev.URL,
		Source:    string(ev.SourceKind),
		Width:     ev.Width,
		Height:    ev.Height,
		Size:      ev.Size,
		Timestamp: ev.At,
	}
}

// Publisher forwards rotator events to the broker.
type Publisher struct {
	client     Client
	topic      string
	log        logger.Logger
	maxBackoff time.Duration
}

// NewPublisher creates a publisher for topic. Events go to topic + "/current".
func NewPublisher(client Client, topic string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Discard()
	}
	return &Publisher{client: client, topic: topic, log: log, maxBackoff: 5 * time.Minute}
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string {
	return p.topic + CurrentSuffix
}

// PublishEvent publishes ev. Failed events are skipped.
func (p *Publisher) PublishEvent(ctx context.Context, ev rotator.Event) error {
	if ev.Err != nil {
		return nil
	}
	payload, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.Topic(), payload)
}

// Run connects, then publishes every event until events closes or ctx is
// done. Publish failures are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, events <-chan rotator.Event) error {
	if err := p.connect(ctx); err != nil {
		return err
	}
	defer p.client.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := p.PublishEvent(ctx, ev); err != nil {
				p.log.Warn("failed to publish event",
					logger.String("image_id", ev.ID),
					logger.Error(err))
			}
		}
	}
}

// connect retries with exponential backoff until it succeeds or ctx ends.
func (p *Publisher) connect(ctx context.Context) error {
	backoff := time.Second
	for {
		err := p.client.Connect(ctx)
		if err == nil {
			return nil
		}
		p.log.Warn("failed to connect to MQTT broker",
			logger.Error(err),
			logger.Duration("retry_in", backoff))

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, p.maxBackoff)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
