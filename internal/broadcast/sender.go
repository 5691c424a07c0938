package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/push"
	"github.com/sayyara-app/backend/internal/repository"
)

var (
	broadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcasts_total",
		Help: "Total number of push broadcasts attempted",
	})
	broadcastMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_messages_sent_total",
		Help: "Total number of push messages accepted by the gateway",
	})
	broadcastBatchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_batch_failures_total",
		Help: "Total number of push batches that failed to send",
	})
)

func init() {
	prometheus.MustRegister(broadcastsTotal, broadcastMessagesSent, broadcastBatchFailures)
}

// Gateway is the push transport the sender fans batches out to.
type Gateway interface {
	Send(ctx context.Context, messages []push.Message) ([]push.Ticket, error)
}

// Publisher emits the audit event after a broadcast completes.
type Publisher interface {
	PublishBroadcastSent(ctx context.Context, b *domain.Broadcast) error
}

// Progress describes the state of an in-flight broadcast after each batch.
type Progress struct {
	Batch   int `json:"batch"`
	Batches int `json:"batches"`
	Sent    int `json:"sent"`
	Total   int `json:"total"`
}

// ProgressFunc receives a Progress update after every batch.
type ProgressFunc func(Progress)

// Config holds broadcast pacing settings. The gateway accepts at most 100
// messages per request, and consecutive batches are spaced out to stay
// under its rate limit.
type Config struct {
	BatchSize  int
	BatchDelay time.Duration
}

// DefaultConfig returns the gateway-compatible pacing defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:  100,
		BatchDelay: time.Second,
	}
}

// Input describes one broadcast.
type Input struct {
	SenderID   string
	Title      string
	Body       string
	Payload    map[string]any
	OnProgress ProgressFunc
}

// Result summarizes a completed broadcast.
type Result struct {
	BroadcastID string `json:"broadcast_id,omitempty"`
	Sent        int    `json:"sent"`
	Total       int    `json:"total"`
}

// Sender delivers a push notification to every opted-in profile, in paced
// batches, tolerating per-batch failures, and appends one audit row per
// completed broadcast.
type Sender struct {
	profiles   repository.ProfileRepository
	broadcasts repository.BroadcastRepository
	gateway    Gateway
	events     Publisher
	cfg        Config
	logger     *slog.Logger
}

// NewSender creates a broadcast sender.
func NewSender(
	profiles repository.ProfileRepository,
	broadcasts repository.BroadcastRepository,
	gateway Gateway,
	events Publisher,
	cfg Config,
	logger *slog.Logger,
) *Sender {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Sender{
		profiles:   profiles,
		broadcasts: broadcasts,
		gateway:    gateway,
		events:     events,
		cfg:        cfg,
		logger:     logger,
	}
}

// Send fans the notification out to all opted-in profiles. With zero
// recipients it returns {0,0} without touching the gateway or the audit
// log. A failed batch is logged and skipped; later batches still go out.
func (s *Sender) Send(ctx context.Context, in Input) (*Result, error) {
	tokens, err := s.profiles.ListPushTargets(ctx)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return &Result{Sent: 0, Total: 0}, nil
	}

	broadcastsTotal.Inc()

	total := len(tokens)
	batches := (total + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	sent := 0

	for i := 0; i < batches; i++ {
		if i > 0 && s.cfg.BatchDelay > 0 {
			select {
			case <-time.After(s.cfg.BatchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		start := i * s.cfg.BatchSize
		end := min(start+s.cfg.BatchSize, total)

		messages := make([]push.Message, 0, end-start)
		for _, token := range tokens[start:end] {
			messages = append(messages, push.NewMessage(token, in.Title, in.Body, in.Payload))
		}

		tickets, err := s.gateway.Send(ctx, messages)
		if err != nil {
			broadcastBatchFailures.Inc()
			s.logger.ErrorContext(ctx, "broadcast batch failed",
				slog.Int("batch", i+1),
				slog.Int("batches", batches),
				slog.String("error", err.Error()),
			)
		} else {
			accepted := 0
			for _, ticket := range tickets {
				if ticket.Ok() {
					accepted++
				}
			}
			sent += accepted
			broadcastMessagesSent.Add(float64(accepted))
		}

		if in.OnProgress != nil {
			in.OnProgress(Progress{Batch: i + 1, Batches: batches, Sent: sent, Total: total})
		}
	}

	record := &domain.Broadcast{
		ID:              uuid.NewString(),
		SenderID:        in.SenderID,
		Title:           in.Title,
		Body:            in.Body,
		Payload:         in.Payload,
		RecipientsCount: sent,
		SentAt:          time.Now().UTC(),
	}

	// The pushes are already out; an audit failure must not undo the
	// result the caller sees.
	if err := s.broadcasts.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "record broadcast failed",
			slog.String("broadcast_id", record.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.events != nil {
		if err := s.events.PublishBroadcastSent(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "publish broadcast.sent failed",
				slog.String("broadcast_id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &Result{BroadcastID: record.ID, Sent: sent, Total: total}, nil
}
