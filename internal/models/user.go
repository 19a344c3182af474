package models

import "time"

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// User carries identity plus live presence state. Users are never deleted.
type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	Status         string    `db:"status" json:"status"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (u *User) Online() bool { return u.Status == PresenceOnline }

// UserSummary is the search-result projection.
type UserSummary struct {
	Username       string `db:"username" json:"username"`
	Email          string `db:"email" json:"email"`
	ProfilePicture string `db:"profile_picture" json:"profile_picture,omitempty"`
}
