package models

import "github.com/google/uuid"

type List struct {
	ID            uuid.UUID `db:"id" json:"id"`
	OwnerID       uuid.UUID `db:"owner_id" json:"owner_id"`
	Name          string    `db:"name" json:"name"`
	Collaborative bool      `db:"collaborative" json:"collaborative"`
	// IsOwner is derived per caller when listing a user's lists.
	IsOwner bool `db:"-" json:"is_owner"`
}

type ListMember struct {
	ListID uuid.UUID `db:"list_id" json:"list_id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
}

// Member is a roster entry with the username resolved from the accounts
// database. Rosters are sorted owner first, then by username.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	IsOwner  bool      `json:"is_owner"`
}
