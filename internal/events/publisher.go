package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TypeCheckoutCompleted = "checkout.completed"
	TypeRequestCancelled  = "request.cancelled"
)

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	SessionID  string          `json:"session_id,omitempty"`
	RequestID  string          `json:"request_id"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	Currency   string          `json:"currency,omitempty"`
	CarrierID  string          `json:"carrier_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var newWriter = func(brokers []string, topic string) writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

// Publisher emits checkout lifecycle events. With no brokers configured it is
// a no-op; event delivery is best-effort by design and never blocks checkout.
type Publisher struct {
	w    writer
	logf func(string, ...any)
}

func NewPublisher(brokersCSV, topic string, logf func(string, ...any)) *Publisher {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	brokers := splitCSV(brokersCSV)
	if len(brokers) == 0 {
		logf("[EVENTS] no brokers configured, publishing disabled")
		return &Publisher{logf: logf}
	}
	logf("[EVENTS] publishing to topic=%s brokers=%v", topic, brokers)
	return &Publisher{w: newWriter(brokers, topic), logf: logf}
}

func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if p.w == nil {
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.RequestID),
		Value: b,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", e.Type, err)
	}
	p.logf("[EVENTS] published %s request=%s", e.Type, e.RequestID)
	return nil
}

func (p *Publisher) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
