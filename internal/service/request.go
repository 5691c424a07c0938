package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/event"
	"github.com/sayyara-app/backend/internal/repository"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// MsgForbiddenAr is the localized message returned when an admin lacks the
// access tier an action requires.
const MsgForbiddenAr = "غير مصرح لك بهذا الإجراء"

// RequestService implements the business logic for inspection booking
// requests.
type RequestService struct {
	requests repository.RequestRepository
	profiles repository.ProfileRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewRequestService creates a new request service.
func NewRequestService(
	requests repository.RequestRepository,
	profiles repository.ProfileRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *RequestService {
	return &RequestService{
		requests: requests,
		profiles: profiles,
		producer: producer,
		logger:   logger,
	}
}

// CreateRequestInput holds the parameters for booking an inspection trip.
type CreateRequestInput struct {
	FromLocation string
	ToLocation   string
	ScheduledAt  time.Time
	Phone        string
}

// Create books a new inspection request for the given rider. New requests
// always start in the pending status.
func (s *RequestService) Create(ctx context.Context, userID string, input CreateRequestInput) (*domain.InspectionRequest, error) {
	if input.FromLocation == "" {
		return nil, apperrors.InvalidInput("pickup location is required")
	}
	if input.ToLocation == "" {
		return nil, apperrors.InvalidInput("destination is required")
	}
	if input.Phone == "" {
		return nil, apperrors.InvalidInput("phone number is required")
	}
	if input.ScheduledAt.IsZero() {
		return nil, apperrors.InvalidInput("scheduled time is required")
	}

	request := &domain.InspectionRequest{
		ID:           uuid.New().String(),
		UserID:       userID,
		FromLocation: input.FromLocation,
		ToLocation:   input.ToLocation,
		ScheduledAt:  input.ScheduledAt,
		Phone:        input.Phone,
		Status:       domain.RequestStatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Publish creation event (non-blocking on failure).
	if err := s.producer.PublishRequestCreated(ctx, request); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish request.created event",
			slog.String("request_id", request.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "request created",
		slog.String("request_id", request.ID),
		slog.String("user_id", userID),
	)

	return request, nil
}

// ListMine returns the rider's own requests, newest first.
func (s *RequestService) ListMine(ctx context.Context, userID string) ([]domain.InspectionRequest, error) {
	requests, err := s.requests.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// List returns a page of all requests for the admin dashboard, plus the
// total row count.
func (s *RequestService) List(ctx context.Context, offset, limit int) ([]domain.InspectionRequest, int, error) {
	requests, total, err := s.requests.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	return requests, total, nil
}

// Accept moves a pending request into processing.
func (s *RequestService) Accept(ctx context.Context, adminID, requestID string) (*domain.InspectionRequest, error) {
	return s.transition(ctx, adminID, requestID, domain.RequestStatusProcessing)
}

// Reject declines a pending request.
func (s *RequestService) Reject(ctx context.Context, adminID, requestID string) (*domain.InspectionRequest, error) {
	return s.transition(ctx, adminID, requestID, domain.RequestStatusRejected)
}

// Complete marks a processing request as done.
func (s *RequestService) Complete(ctx context.Context, adminID, requestID string) (*domain.InspectionRequest, error) {
	return s.transition(ctx, adminID, requestID, domain.RequestStatusDone)
}

// Delete removes a request. Only full-access admins may delete.
func (s *RequestService) Delete(ctx context.Context, adminID, requestID string) error {
	if err := requireFullAccess(ctx, s.profiles, adminID); err != nil {
		return err
	}

	if err := s.requests.Delete(ctx, requestID); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	s.logger.InfoContext(ctx, "request deleted",
		slog.String("request_id", requestID),
		slog.String("admin_id", adminID),
	)

	return nil
}

// transition moves a request into the target status. The current status is
// read first so an illegal move fails before touching the row; the update
// itself is still conditional, so a concurrent transition surfaces as a
// conflict rather than a silent overwrite.
func (s *RequestService) transition(ctx context.Context, adminID, requestID, to string) (*domain.InspectionRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request for transition: %w", err)
	}

	if !domain.CanTransitionRequest(request.Status, to) {
		return nil, apperrors.Conflict(fmt.Sprintf("request cannot move from %q to %q", request.Status, to))
	}

	from := request.Status
	if err := s.requests.TransitionStatus(ctx, requestID, from, to); err != nil {
		return nil, err
	}
	request.Status = to

	// Publish status change event (non-blocking on failure).
	if err := s.producer.PublishRequestStatusChanged(ctx, requestID, from, to, adminID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish request.status_changed event",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "request status changed",
		slog.String("request_id", requestID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("admin_id", adminID),
	)

	return request, nil
}

// requireFullAccess loads the acting admin's profile and rejects the call
// unless the profile carries the full access tier.
func requireFullAccess(ctx context.Context, profiles repository.ProfileRepository, actorID string) error {
	profile, err := profiles.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("get acting profile: %w", err)
	}

	if !profile.HasFullAccess() {
		return apperrors.Forbidden("full access required").Localize(MsgForbiddenAr)
	}

	return nil
}
