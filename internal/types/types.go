package types

import "time"

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStopped AgentStatus = "stopped"
	AgentRunning AgentStatus = "running"
	AgentError   AgentStatus = "error"
)

// BrandStyle captures the voice an agent writes in.
type BrandStyle struct {
	Tone   string   `json:"tone"`
	Voice  string   `json:"voice"`
	Topics []string `json:"topics"`
}

// AutoTweetConfig controls periodic original-content posting.
type AutoTweetConfig struct {
	Enabled        bool       `json:"enabled"`
	FrequencyHours float64    `json:"frequency_hours"`
	Count          int        `json:"count"` // posts generated per cycle
	LastRun        *time.Time `json:"last_run,omitempty"`
}

// AutoEngageConfig controls periodic reply cycles.
type AutoEngageConfig struct {
	Enabled        bool       `json:"enabled"`
	FrequencyHours float64    `json:"frequency_hours"`
	MaxReplies     int        `json:"max_replies"`
	MinScore       int        `json:"min_score"` // 0 = derive from strictness
	Strictness     int        `json:"strictness"` // 0 (lenient) .. 5 (strict)
	QualityFilter  bool       `json:"quality_filter"`
	LastRun        *time.Time `json:"last_run,omitempty"`
}

// Agent is a configured posting persona. The auto-tweet and auto-engage
// configs are independently schedulable; LastRun timestamps are monotonically
// non-decreasing and are the sole gate against re-triggering within an
// interval.
type Agent struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Name       string           `json:"name"`
	Handle     string           `json:"handle"` // the X handle the agent posts as
	Goal       string           `json:"goal"`
	Brand      BrandStyle       `json:"brand"`
	Language   string           `json:"language"`
	Status     AgentStatus      `json:"status"`
	AutoTweet  AutoTweetConfig  `json:"auto_tweet"`
	AutoEngage AutoEngageConfig `json:"auto_engage"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CandidateItem is a timeline post under consideration for a reply.
// Ephemeral: fetched per cycle, never persisted except as a Reply snapshot.
type CandidateItem struct {
	ID           string `json:"id"`
	AuthorHandle string `json:"author_handle"`
	AuthorName   string `json:"author_name"`
	Text         string `json:"text"`
	Likes        int    `json:"likes"`
	Retweets     int    `json:"retweets"`
	Replies      int    `json:"replies"`
	IsRetweet    bool   `json:"is_retweet"`
	IsReply      bool   `json:"is_reply"`
	URL          string `json:"url"`
}

// QualityScore is the per-candidate result of quality filtering.
type QualityScore struct {
	ItemID       string   `json:"item_id"`
	Score        int      `json:"score"` // clamped to [1,10]
	Reasoning    string   `json:"reasoning"`
	ShouldEngage bool     `json:"should_engage"`
	Flags        []string `json:"flags"`
}

// ReplyStatus is the lifecycle state of a generated reply.
type ReplyStatus string

const (
	ReplyPending  ReplyStatus = "pending"
	ReplyPosting  ReplyStatus = "posting"
	ReplyPosted   ReplyStatus = "posted"
	ReplyFailed   ReplyStatus = "failed"
	ReplyRejected ReplyStatus = "rejected"
)

// Reply is a generated-and-attempted response to one CandidateItem. At most
// one non-failed/rejected Reply may exist per (agent, source) pair.
type Reply struct {
	ID           string      `json:"id"`
	AgentID      string      `json:"agent_id"`
	SourceID     string      `json:"source_id"`
	SourceAuthor string      `json:"source_author"`
	SourceText   string      `json:"source_text"`
	Text         string      `json:"text"`
	Status       ReplyStatus `json:"status"`
	Score        int         `json:"score"`
	ExternalID   string      `json:"external_id,omitempty"`
	PostedAt     *time.Time  `json:"posted_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ScheduledPostStatus is the lifecycle state of a queued post.
type ScheduledPostStatus string

const (
	PostScheduled ScheduledPostStatus = "scheduled"
	PostPosting   ScheduledPostStatus = "posting"
	PostPosted    ScheduledPostStatus = "posted"
	PostFailed    ScheduledPostStatus = "failed"
)

// ScheduledPost is a not-yet-posted piece of content with a target time.
type ScheduledPost struct {
	ID           string              `json:"id"`
	AgentID      string              `json:"agent_id"`
	Content      string              `json:"content"`
	ScheduledFor time.Time           `json:"scheduled_for"`
	Status       ScheduledPostStatus `json:"status"`
	ExternalID   string              `json:"external_id,omitempty"`
	ExternalURL  string              `json:"external_url,omitempty"`
	PostedAt     *time.Time          `json:"posted_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// User owns agents and carries the billing plan the quota checks run against.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// Usage holds per-user monthly counters. Counters increment only after a
// confirmed successful post or generation.
type Usage struct {
	UserID          string `json:"user_id"`
	Period          string `json:"period"` // "2006-01"
	RepliesUsed     int    `json:"replies_used"`
	GenerationsUsed int    `json:"generations_used"`
}

// Period returns the usage period key for a point in time.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PostReceipt is what the poster returns on a confirmed post.
type PostReceipt struct {
	ExternalID string    `json:"external_id"`
	URL        string    `json:"url"`
	PostedAt   time.Time `json:"posted_at"`
}
