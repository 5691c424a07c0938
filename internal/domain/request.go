package domain

import (
	"time"
)

// Request status constants. Done and rejected are terminal; no transition
// out of them is exposed.
const (
	RequestStatusPending    = "pending"
	RequestStatusProcessing = "processing"
	RequestStatusDone       = "done"
	RequestStatusRejected   = "rejected"
)

// InspectionRequest is a rider's booking for a car inspection trip.
type InspectionRequest struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	FromLocation string    `json:"from"`
	ToLocation   string    `json:"to"`
	ScheduledAt  time.Time `json:"time"`
	Phone        string    `json:"phone"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidRequestStatuses returns the set of valid request statuses.
func ValidRequestStatuses() []string {
	return []string{RequestStatusPending, RequestStatusProcessing, RequestStatusDone, RequestStatusRejected}
}

// IsValidRequestStatus checks whether the given status string is valid.
func IsValidRequestStatus(status string) bool {
	for _, s := range ValidRequestStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransitionRequest reports whether a request may move between the two
// statuses. Allowed: pending→processing, pending→rejected, processing→done.
func CanTransitionRequest(from, to string) bool {
	switch from {
	case RequestStatusPending:
		return to == RequestStatusProcessing || to == RequestStatusRejected
	case RequestStatusProcessing:
		return to == RequestStatusDone
	default:
		return false
	}
}
