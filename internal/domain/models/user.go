package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	GoogleSub   string    `db:"google_sub" json:"-"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	PhotoURL    string    `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastLogin   time.Time `db:"last_login" json:"last_login"`
}

// ExternalIdentity is what the identity provider tells us about a user
// after a successful sign-in.
type ExternalIdentity struct {
	Subject    string
	Email      string
	Name       string
	PictureURL string
}
