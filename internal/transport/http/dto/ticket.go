package dto

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/markdown"
)

// GalleryUploadPrefix marks a gallery entry that refers to the n-th file of
// the gallery_files part, e.g. "upload:0".
const GalleryUploadPrefix = "upload:"

// TicketForm is the multipart form shared by the create and edit views.
// Files are read separately from the request.
type TicketForm struct {
	Title           string   `form:"title" validate:"required,max=255"`
	Location        string   `form:"location" validate:"max=255"`
	WebsiteURL      string   `form:"website_url" validate:"omitempty,url,max=2048"`
	VisitDate       string   `form:"visit_date" validate:"required"`
	VisitHour       string   `form:"visit_hour" validate:"omitempty,numeric"`
	Rating          int      `form:"rating" validate:"min=1,max=5"`
	Review          string   `form:"review" validate:"max=20000"`
	TicketImagePath string   `form:"ticket_image_path"`
	Gallery         []string `form:"gallery"`
}

// TicketInput is what the ticket service accepts for create and update.
// Images are either pending uploads or references to stored objects.
type TicketInput struct {
	Title       string
	Location    string
	WebsiteURL  string
	VisitDate   time.Time
	Rating      int
	Review      string
	TicketImage models.ImageSource
	Gallery     []models.ImageSource
}

type TicketResponse struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Location    string            `json:"location,omitempty"`
	MapURL      string            `json:"map_url,omitempty"`
	WebsiteURL  string            `json:"website_url,omitempty"`
	VisitDate   time.Time         `json:"visit_date"`
	Rating      int               `json:"rating"`
	Review      string            `json:"review"`
	ReviewHTML  string            `json:"review_html,omitempty"`
	TicketImage models.ImageRef   `json:"ticket_image"`
	Gallery     []models.ImageRef `json:"gallery"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func NewTicketResponse(t *models.Ticket, withHTML bool) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Location:    t.Location,
		WebsiteURL:  t.WebsiteURL,
		VisitDate:   t.VisitDate,
		Rating:      t.Rating,
		Review:      t.Review,
		TicketImage: t.TicketImage,
		Gallery:     t.Gallery,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}

	if resp.Gallery == nil {
		resp.Gallery = []models.ImageRef{}
	}

	if t.Location != "" {
		resp.MapURL = "https://www.google.com/maps/search/" + url.PathEscape(t.Location)
	}

	if withHTML {
		resp.ReviewHTML = markdown.Render(t.Review)
	}

	return resp
}

func NewTicketListResponse(tickets []models.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i], false))
	}
	return out
}

// NeighborsResponse drives cross-ticket navigation on the detail view.
type NeighborsResponse struct {
	PreviousID uuid.UUID `json:"previous_id"`
	NextID     uuid.UUID `json:"next_id"`
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	Navigable  bool      `json:"navigable"`
}
