package store

import "postpilot/internal/types"

// CreateUser inserts a new user
func (s *Store) CreateUser(u *types.User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, plan) VALUES (?, ?, ?)
	`, u.ID, u.Email, u.Plan)
	return err
}

// GetUser returns a user by id
func (s *Store) GetUser(id string) (*types.User, error) {
	var u types.User
	err := s.db.QueryRow(`SELECT id, email, plan FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Plan)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
