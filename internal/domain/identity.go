// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxDisplayNameLen = 64

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

type UserID string

// Identity is the verified user bound to one live connection.
type Identity struct {
	UserID UserID `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// NewIdentity avoids ad-hoc struct literals in adapters.
func NewIdentity(id UserID, name, email string) (Identity, error) {
	if name == "" {
		return Identity{}, ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return Identity{}, ErrNameTooLong
	}
	return Identity{UserID: id, Name: name, Email: email}, nil
}
