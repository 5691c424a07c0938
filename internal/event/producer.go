package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/sayyara-app/backend/pkg/kafka"
	"github.com/sayyara-app/backend/internal/domain"
)

// Kafka topics for the backend's domain events.
var (
	TopicUserRegistered       = pkgkafka.Topic("user", "registered")
	TopicProfileUpdated       = pkgkafka.Topic("profile", "updated")
	TopicProfileAccessChanged = pkgkafka.Topic("profile", "access_changed")
	TopicRequestCreated       = pkgkafka.Topic("request", "created")
	TopicRequestStatusChanged = pkgkafka.Topic("request", "status_changed")
	TopicBroadcastSent        = pkgkafka.Topic("broadcast", "sent")
)

// Source identifier for events originating from this backend.
const Source = "sayyara-backend"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ProfileUpdatedData is the payload for a profile.updated event.
type ProfileUpdatedData struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Access   string `json:"access"`
}

// ProfileAccessChangedData is the payload for a profile.access_changed event.
type ProfileAccessChangedData struct {
	ID        string `json:"id"`
	Access    string `json:"access"`
	ChangedBy string `json:"changed_by"`
}

// RequestCreatedData is the payload for a request.created event.
type RequestCreatedData struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	FromLocation string    `json:"from"`
	ToLocation   string    `json:"to"`
	ScheduledAt  time.Time `json:"time"`
}

// RequestStatusChangedData is the payload for a request.status_changed event.
type RequestStatusChangedData struct {
	ID         string `json:"id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ChangedBy  string `json:"changed_by"`
}

// BroadcastSentData is the payload for a broadcast.sent event.
type BroadcastSentData struct {
	ID              string    `json:"id"`
	SenderID        string    `json:"sender_id"`
	Title           string    `json:"title"`
	RecipientsCount int       `json:"recipients_count"`
	SentAt          time.Time `json:"sent_at"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{ID: user.ID, Email: user.Email}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, "user", Source, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	return nil
}

// PublishProfileUpdated publishes a profile.updated event.
func (p *Producer) PublishProfileUpdated(ctx context.Context, profile *domain.Profile) error {
	data := ProfileUpdatedData{
		ID:       profile.ID,
		FullName: profile.FullName,
		Role:     profile.Role,
		Access:   profile.Access,
	}

	event, err := pkgkafka.NewEvent(TopicProfileUpdated, profile.ID, "profile", Source, data)
	if err != nil {
		return fmt.Errorf("create profile.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProfileUpdated, event); err != nil {
		return fmt.Errorf("publish profile.updated event: %w", err)
	}

	return nil
}

// PublishProfileAccessChanged publishes a profile.access_changed event.
func (p *Producer) PublishProfileAccessChanged(ctx context.Context, profileID, access, changedBy string) error {
	data := ProfileAccessChangedData{ID: profileID, Access: access, ChangedBy: changedBy}

	event, err := pkgkafka.NewEvent(TopicProfileAccessChanged, profileID, "profile", Source, data)
	if err != nil {
		return fmt.Errorf("create profile.access_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProfileAccessChanged, event); err != nil {
		return fmt.Errorf("publish profile.access_changed event: %w", err)
	}

	return nil
}

// PublishRequestCreated publishes a request.created event.
func (p *Producer) PublishRequestCreated(ctx context.Context, req *domain.InspectionRequest) error {
	data := RequestCreatedData{
		ID:           req.ID,
		UserID:       req.UserID,
		FromLocation: req.FromLocation,
		ToLocation:   req.ToLocation,
		ScheduledAt:  req.ScheduledAt,
	}

	event, err := pkgkafka.NewEvent(TopicRequestCreated, req.ID, "request", Source, data)
	if err != nil {
		return fmt.Errorf("create request.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicRequestCreated, event); err != nil {
		return fmt.Errorf("publish request.created event: %w", err)
	}

	return nil
}

// PublishRequestStatusChanged publishes a request.status_changed event.
func (p *Producer) PublishRequestStatusChanged(ctx context.Context, requestID, from, to, changedBy string) error {
	data := RequestStatusChangedData{ID: requestID, FromStatus: from, ToStatus: to, ChangedBy: changedBy}

	event, err := pkgkafka.NewEvent(TopicRequestStatusChanged, requestID, "request", Source, data)
	if err != nil {
		return fmt.Errorf("create request.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicRequestStatusChanged, event); err != nil {
		return fmt.Errorf("publish request.status_changed event: %w", err)
	}

	return nil
}

// PublishBroadcastSent publishes a broadcast.sent event.
func (p *Producer) PublishBroadcastSent(ctx context.Context, b *domain.Broadcast) error {
	data := BroadcastSentData{
		ID:              b.ID,
		SenderID:        b.SenderID,
		Title:           b.Title,
		RecipientsCount: b.RecipientsCount,
		SentAt:          b.SentAt,
	}

	event, err := pkgkafka.NewEvent(TopicBroadcastSent, b.ID, "broadcast", Source, data)
	if err != nil {
		return fmt.Errorf("create broadcast.sent event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicBroadcastSent, event); err != nil {
		return fmt.Errorf("publish broadcast.sent event: %w", err)
	}

	return nil
}
