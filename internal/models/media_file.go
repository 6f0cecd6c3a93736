package models

import "time"

type MediaFile struct {
	ID           int64     `json:"id"`
	UserID       *int      `json:"user_id,omitempty"` // nil for anonymous uploads
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimetype"`
	StorageKey   string    `json:"-"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
