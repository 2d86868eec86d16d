package dto

import "time"

// ExportLink points at a published attendance sheet.
type ExportLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url,omitempty"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
}
