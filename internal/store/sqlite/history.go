package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	HistoryClaim  = "claim"
	HistoryRedeem = "redeem"
)

type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message,omitempty"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Store) Append(ctx context.Context, e HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	success := 0
	if e.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, user_id, kind, subject, message, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Kind, e.Subject, e.Message, success, e.CreatedAt.UnixMilli())
	return err
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, subject, message, success, created_at
		FROM history WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var success int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Subject, &e.Message, &success, &createdAt); err != nil {
			return nil, err
		}
		e.Success = success != 0
		e.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser scrubs a user's rows; the expiry sweep calls this alongside
// credential removal so nothing about a departed user lingers.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID)
	return err
}
