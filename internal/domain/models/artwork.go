package models

type Artwork struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Date        string `json:"date,omitempty"`
	Style       string `json:"style,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url"`
	AltText     string `json:"alt_text,omitempty"`
}
