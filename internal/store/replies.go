package store

import (
	"strings"
	"time"

	"postpilot/internal/types"
)

// CreateReply inserts a reply. A partial unique index allows at most one
// non-failed/rejected reply per (agent, source) pair; a second attempt is
// reported as created=false, not as an error.
func (s *Store) CreateReply(r *types.Reply) (bool, error) {
	_, err := s.db.Exec(`
		INSERT INTO replies (id, agent_id, source_id, source_author, source_text,
			text, status, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.AgentID, r.SourceID, r.SourceAuthor, r.SourceText,
		r.Text, string(r.Status), r.Score, r.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkReplyPosted transitions a reply to posted with its external receipt
func (s *Store) MarkReplyPosted(id, externalID string, postedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE replies SET status = ?, external_id = ?, posted_at = ? WHERE id = ?
	`, string(types.ReplyPosted), externalID, postedAt, id)
	return err
}

// SetReplyStatus transitions a reply to the given status
func (s *Store) SetReplyStatus(id string, status types.ReplyStatus) error {
	_, err := s.db.Exec(`UPDATE replies SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// ActiveReplySourceIDs returns the source ids this agent already has a
// pending/posting/posted reply for. Used by the basic dedupe filter.
func (s *Store) ActiveReplySourceIDs(agentID string) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT source_id FROM replies
		WHERE agent_id = ? AND status NOT IN ('failed', 'rejected')
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

// CountReplies returns the number of replies for an agent in a given status
func (s *Store) CountReplies(agentID string, status types.ReplyStatus) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM replies WHERE agent_id = ? AND status = ?
	`, agentID, string(status)).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
