package models

import (
	"github.com/google/uuid"
)

type ImageRole string

const (
	RoleTicket  ImageRole = "ticket"
	RoleGallery ImageRole = "gallery"
)

// ImageRef points at a stored object. URL is for display, Path for deletion.
type ImageRef struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func (r ImageRef) IsZero() bool {
	return r.URL == "" && r.Path == ""
}

// ImageSource is either a PendingImage that still has to be uploaded or a
// StoredImage that already lives in object storage.
type ImageSource interface {
	isImageSource()
}

type PendingImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (PendingImage) isImageSource() {}

func (p PendingImage) Size() int64 {
	return int64(len(p.Data))
}

type StoredImage struct {
	ImageRef
}

func (StoredImage) isImageSource() {}

// UploadedAsset is the ephemeral outcome of one upload. Only its ImageRef
// is kept on the ticket.
type UploadedAsset struct {
	ID             string    `json:"id"`
	TicketID       uuid.UUID `json:"ticket_id"`
	Role           ImageRole `json:"role"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mime_type"`
	URL            string    `json:"url"`
	Path           string    `json:"path"`
	OriginalSize   int64     `json:"original_size"`
	CompressedSize int64     `json:"compressed_size"`
}

func (a *UploadedAsset) Ref() ImageRef {
	return ImageRef{URL: a.URL, Path: a.Path}
}
