package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sayyara-app/backend/internal/domain"
)

// BroadcastRepository implements repository.BroadcastRepository using
// PostgreSQL. Rows are an append-only audit log.
type BroadcastRepository struct {
	db DB
}

// NewBroadcastRepository creates a new PostgreSQL-backed broadcast repository.
func NewBroadcastRepository(db DB) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

// Create appends one broadcast audit row.
func (r *BroadcastRepository) Create(ctx context.Context, b *domain.Broadcast) error {
	payload, err := json.Marshal(b.Payload)
	if err != nil {
		return fmt.Errorf("marshal broadcast payload: %w", err)
	}

	query := `
		INSERT INTO notification_broadcasts (id, sender_id, title, body, payload, recipients_count, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		b.ID,
		b.SenderID,
		b.Title,
		b.Body,
		payload,
		b.RecipientsCount,
		b.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert broadcast: %w", err)
	}

	return nil
}

// List returns a page of past broadcasts, newest first, plus the total count.
func (r *BroadcastRepository) List(ctx context.Context, offset, limit int) ([]domain.Broadcast, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notification_broadcasts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count broadcasts: %w", err)
	}

	query := `
		SELECT id, sender_id, title, body, payload, recipients_count, sent_at
		FROM notification_broadcasts
		ORDER BY sent_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list broadcasts: %w", err)
	}
	defer rows.Close()

	broadcasts := []domain.Broadcast{}
	for rows.Next() {
		var b domain.Broadcast
		var payload []byte
		err := rows.Scan(
			&b.ID,
			&b.SenderID,
			&b.Title,
			&b.Body,
			&payload,
			&b.RecipientsCount,
			&b.SentAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan broadcast row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &b.Payload); err != nil {
				return nil, 0, fmt.Errorf("unmarshal broadcast payload: %w", err)
			}
		}
		broadcasts = append(broadcasts, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate broadcast rows: %w", err)
	}

	return broadcasts, total, nil
}
