package events

import (
	"context"
	"encoding/json"
	"roomly/pkg/config"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
	"roomly/pkg/model"
	"time"

	"github.com/google/uuid"
)

const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"

	sourceService = "bookings"
)

// BookingEvent is the lifecycle record published after a booking
// reaches a terminal-ish state. Downstream consumers (billing,
// notifications) key off booking_id; correlation_id ties the event back
// to the originating request.
type BookingEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	BookingUID string    `json:"booking_uid"`
	UserID     string    `json:"user_id"`
	RoomID     string    `json:"room_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. Publishing is best-effort:
// a broker outage must never fail a booking that already committed.
type Publisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking, requestID string)
	BookingCancelled(ctx context.Context, booking *model.Booking, requestID string)
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher returns a Kafka-backed publisher, or a no-op one when no
// brokers are configured so local development works without a broker.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, booking events disabled")
		return &noopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(kafka.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaBookingTopic,
	})
	if err != nil {
		return nil, err
	}

	return &kafkaPublisher{producer: producer, log: cfg.Log}, nil
}

func (p *kafkaPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking, requestID string) {
	p.publish(ctx, TypeBookingConfirmed, booking, requestID)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking, requestID string) {
	p.publish(ctx, TypeBookingCancelled, booking, requestID)
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking, requestID string) {
	event := BookingEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		BookingID:  booking.ID,
		BookingUID: booking.UID,
		UserID:     booking.UserID,
		RoomID:     booking.RoomID,
		StartDate:  booking.StartDate,
		EndDate:    booking.EndDate,
		Status:     booking.Status,
		FailReason: booking.FailReason,
		OccurredAt: time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to marshal booking event", "error", err, "type", eventType)
		return
	}

	msg := kafka.Message{
		Key:   booking.ID,
		Value: value,
		Headers: map[string]string{
			kafka.HeaderEventID:       event.EventID,
			kafka.HeaderEventType:     eventType,
			kafka.HeaderCorrelationID: requestID,
			kafka.HeaderSource:        sourceService,
		},
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"error", err,
			"type", eventType,
			"booking_id", booking.ID,
		)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

func (noopPublisher) BookingConfirmed(context.Context, *model.Booking, string) {}
func (noopPublisher) BookingCancelled(context.Context, *model.Booking, string) {}
func (noopPublisher) Close() error                                             { return nil }
