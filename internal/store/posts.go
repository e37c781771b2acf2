package store

import (
	"database/sql"
	"time"

	"postpilot/internal/types"
)

// CreateScheduledPost inserts a queued post
func (s *Store) CreateScheduledPost(p *types.ScheduledPost) error {
	_, err := s.db.Exec(`
		INSERT INTO scheduled_posts (id, agent_id, content, scheduled_for, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.AgentID, p.Content, p.ScheduledFor, string(p.Status), p.CreatedAt)
	return err
}

// DueScheduledPosts returns scheduled posts whose target time has passed and
// whose owning agent is running, oldest first.
func (s *Store) DueScheduledPosts(now time.Time) ([]types.ScheduledPost, error) {
	rows, err := s.db.Query(`
		SELECT sp.id, sp.agent_id, sp.content, sp.scheduled_for, sp.status,
			sp.external_id, sp.external_url, sp.posted_at, sp.created_at
		FROM scheduled_posts sp
		JOIN agents a ON a.id = sp.agent_id
		WHERE sp.status = 'scheduled' AND sp.scheduled_for <= ? AND a.status = 'running'
		ORDER BY sp.scheduled_for
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []types.ScheduledPost
	for rows.Next() {
		var p types.ScheduledPost
		var status string
		var externalID, externalURL sql.NullString
		var postedAt sql.NullTime

		err := rows.Scan(&p.ID, &p.AgentID, &p.Content, &p.ScheduledFor, &status,
			&externalID, &externalURL, &postedAt, &p.CreatedAt)
		if err != nil {
			return nil, err
		}

		p.Status = types.ScheduledPostStatus(status)
		p.ExternalID = externalID.String
		p.ExternalURL = externalURL.String
		if postedAt.Valid {
			t := postedAt.Time
			p.PostedAt = &t
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SetScheduledPostStatus transitions a scheduled post to the given status
func (s *Store) SetScheduledPostStatus(id string, status types.ScheduledPostStatus) error {
	_, err := s.db.Exec(`UPDATE scheduled_posts SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// MarkScheduledPostPosted records a confirmed post with its external receipt
func (s *Store) MarkScheduledPostPosted(id string, receipt types.PostReceipt) error {
	_, err := s.db.Exec(`
		UPDATE scheduled_posts SET status = ?, external_id = ?, external_url = ?, posted_at = ?
		WHERE id = ?
	`, string(types.PostPosted), receipt.ExternalID, receipt.URL, receipt.PostedAt, id)
	return err
}

// ListScheduledPosts returns all queued posts for an agent, newest first
func (s *Store) ListScheduledPosts(agentID string) ([]types.ScheduledPost, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, content, scheduled_for, status,
			external_id, external_url, posted_at, created_at
		FROM scheduled_posts WHERE agent_id = ?
		ORDER BY scheduled_for DESC
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []types.ScheduledPost
	for rows.Next() {
		var p types.ScheduledPost
		var status string
		var externalID, externalURL sql.NullString
		var postedAt sql.NullTime

		err := rows.Scan(&p.ID, &p.AgentID, &p.Content, &p.ScheduledFor, &status,
			&externalID, &externalURL, &postedAt, &p.CreatedAt)
		if err != nil {
			return nil, err
		}

		p.Status = types.ScheduledPostStatus(status)
		p.ExternalID = externalID.String
		p.ExternalURL = externalURL.String
		if postedAt.Valid {
			t := postedAt.Time
			p.PostedAt = &t
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
