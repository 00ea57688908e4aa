package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxGalleryImages = 5

	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3
)

// Ticket is one recorded exhibition visit. A ticket with an empty
// TicketImage is a placeholder whose uploads have not been attached yet.
type Ticket struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Location    string     `json:"location,omitempty" db:"location"`
	WebsiteURL  string     `json:"website_url,omitempty" db:"website_url"`
	VisitDate   time.Time  `json:"visit_date" db:"visit_date"`
	Rating      int        `json:"rating" db:"rating"`
	Review      string     `json:"review" db:"review"`
	TicketImage ImageRef   `json:"ticket_image"`
	Gallery     []ImageRef `json:"gallery"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func (t *Ticket) Incomplete() bool {
	return t.TicketImage.IsZero()
}

// Images returns the primary image followed by the gallery, the sequence
// browsed in the image modal.
func (t *Ticket) Images() []ImageRef {
	out := make([]ImageRef, 0, 1+len(t.Gallery))
	if !t.TicketImage.IsZero() {
		out = append(out, t.TicketImage)
	}
	return append(out, t.Gallery...)
}
