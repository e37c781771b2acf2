package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"postpilot/internal/config"
)

// CookieStore handles storage of X.com session cookies, one bundle per agent
type CookieStore struct {
	dir string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	AgentID    string            `json:"agent_id"`
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store rooted at the given directory
func NewCookieStore(dir string) *CookieStore {
	return &CookieStore{dir: dir}
}

// DefaultCookieDir returns the default directory for cookie storage
func DefaultCookieDir() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies"), nil
}

func (cs *CookieStore) path(agentID string) string {
	return filepath.Join(cs.dir, agentID+".json")
}

// Save persists an agent's cookies to disk
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(agentID string, cookies []*network.Cookie) error {
	if err := os.MkdirAll(cs.dir, 0700); err != nil {
		return err
	}

	// Find the earliest expiration among auth-related cookies
	var earliestExpiry time.Time
	for _, c := range cookies {
		if c.Name == "auth_token" || c.Name == "ct0" {
			exp := time.Unix(int64(c.Expires), 0)
			if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
				earliestExpiry = exp
			}
		}
	}

	stored := StoredCookies{
		AgentID:    agentID,
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path(agentID), data, 0600)
}

// Load retrieves an agent's cookies from disk
func (cs *CookieStore) Load(agentID string) (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path(agentID))
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if an agent's stored cookies are still valid
func (cs *CookieStore) IsValid(agentID string) bool {
	stored, err := cs.Load(agentID)
	if err != nil {
		return false
	}

	// Check if cookies have expired
	if time.Now().After(stored.ExpiresAt) {
		return false
	}

	// Check for required cookies
	hasAuthToken := false
	hasCT0 := false
	for _, c := range stored.Cookies {
		if c.Name == "auth_token" {
			hasAuthToken = true
		}
		if c.Name == "ct0" {
			hasCT0 = true
		}
	}

	return hasAuthToken && hasCT0
}

// Clear removes an agent's stored cookies
func (cs *CookieStore) Clear(agentID string) error {
	return os.Remove(cs.path(agentID))
}

// XCookies returns only the x.com related cookies for use in requests
func (cs *CookieStore) XCookies(agentID string) ([]*network.Cookie, error) {
	stored, err := cs.Load(agentID)
	if err != nil {
		return nil, err
	}

	var xCookies []*network.Cookie
	for _, c := range stored.Cookies {
		if c.Domain == ".x.com" || c.Domain == "x.com" {
			xCookies = append(xCookies, c)
		}
	}

	return xCookies, nil
}
