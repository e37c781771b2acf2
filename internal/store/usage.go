package store

import (
	"database/sql"
	"errors"

	"postpilot/internal/types"
)

// Usage returns the usage counters for a user and period, zero if none exist
func (s *Store) Usage(userID, period string) (types.Usage, error) {
	u := types.Usage{UserID: userID, Period: period}
	err := s.db.QueryRow(`
		SELECT replies_used, generations_used FROM usage
		WHERE user_id = ? AND period = ?
	`, userID, period).Scan(&u.RepliesUsed, &u.GenerationsUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	return u, err
}

// IncrementReplies bumps the reply counter by one. Called only after a
// confirmed successful post.
func (s *Store) IncrementReplies(userID, period string) error {
	return s.incrementUsage(userID, period, "replies_used")
}

// IncrementGenerations bumps the generation counter by one
func (s *Store) IncrementGenerations(userID, period string) error {
	return s.incrementUsage(userID, period, "generations_used")
}

func (s *Store) incrementUsage(userID, period, column string) error {
	_, err := s.db.Exec(`
		INSERT INTO usage (user_id, period, `+column+`)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id, period) DO UPDATE SET `+column+` = `+column+` + 1
	`, userID, period)
	return err
}
