package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"postpilot/internal/types"
)

const agentColumns = `id, user_id, name, handle, goal, brand, language, status,
	auto_tweet_enabled, auto_tweet_frequency_hours, auto_tweet_count, last_auto_tweet_at,
	auto_engage_enabled, auto_engage_frequency_hours, auto_engage_max_replies,
	auto_engage_min_score, auto_engage_strictness, auto_engage_quality_filter,
	last_auto_engage_at, created_at`

// CreateAgent inserts a new agent
func (s *Store) CreateAgent(a *types.Agent) error {
	brandJSON, _ := json.Marshal(a.Brand)

	_, err := s.db.Exec(`
		INSERT INTO agents (id, user_id, name, handle, goal, brand, language, status,
			auto_tweet_enabled, auto_tweet_frequency_hours, auto_tweet_count, last_auto_tweet_at,
			auto_engage_enabled, auto_engage_frequency_hours, auto_engage_max_replies,
			auto_engage_min_score, auto_engage_strictness, auto_engage_quality_filter,
			last_auto_engage_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Name, a.Handle, a.Goal, string(brandJSON), a.Language, string(a.Status),
		a.AutoTweet.Enabled, a.AutoTweet.FrequencyHours, a.AutoTweet.Count, nullTime(a.AutoTweet.LastRun),
		a.AutoEngage.Enabled, a.AutoEngage.FrequencyHours, a.AutoEngage.MaxReplies,
		a.AutoEngage.MinScore, a.AutoEngage.Strictness, a.AutoEngage.QualityFilter,
		nullTime(a.AutoEngage.LastRun), a.CreatedAt)

	return err
}

// GetAgent returns an agent by id
func (s *Store) GetAgent(id string) (*types.Agent, error) {
	row := s.db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// ListAgents returns all agents
func (s *Store) ListAgents() ([]types.Agent, error) {
	return s.queryAgents(`SELECT ` + agentColumns + ` FROM agents ORDER BY created_at`)
}

// ListRunningAgents returns agents in the running state
func (s *Store) ListRunningAgents() ([]types.Agent, error) {
	return s.queryAgents(`SELECT `+agentColumns+` FROM agents WHERE status = ?`, string(types.AgentRunning))
}

// SetAgentStatus updates an agent's lifecycle status
func (s *Store) SetAgentStatus(id string, status types.AgentStatus) error {
	_, err := s.db.Exec(`UPDATE agents SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// SetLastAutoTweet advances the agent's auto-tweet clock
func (s *Store) SetLastAutoTweet(id string, t time.Time) error {
	_, err := s.db.Exec(`UPDATE agents SET last_auto_tweet_at = ? WHERE id = ?`, t, id)
	return err
}

// SetLastAutoEngage advances the agent's auto-engage clock
func (s *Store) SetLastAutoEngage(id string, t time.Time) error {
	_, err := s.db.Exec(`UPDATE agents SET last_auto_engage_at = ? WHERE id = ?`, t, id)
	return err
}

func (s *Store) queryAgents(query string, args ...any) ([]types.Agent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []types.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*types.Agent, error) {
	var a types.Agent
	var brandJSON, status string
	var lastTweet, lastEngage sql.NullTime

	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.Handle, &a.Goal, &brandJSON, &a.Language, &status,
		&a.AutoTweet.Enabled, &a.AutoTweet.FrequencyHours, &a.AutoTweet.Count, &lastTweet,
		&a.AutoEngage.Enabled, &a.AutoEngage.FrequencyHours, &a.AutoEngage.MaxReplies,
		&a.AutoEngage.MinScore, &a.AutoEngage.Strictness, &a.AutoEngage.QualityFilter,
		&lastEngage, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(brandJSON), &a.Brand)
	a.Status = types.AgentStatus(status)
	if lastTweet.Valid {
		t := lastTweet.Time
		a.AutoTweet.LastRun = &t
	}
	if lastEngage.Valid {
		t := lastEngage.Time
		a.AutoEngage.LastRun = &t
	}

	return &a, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
