package models

import "time"

// Image is a durable, publicly addressable image record. ImageID is the
// public opaque identifier used in URLs; StorageKey is the internal
// blob handle and is never exposed. Records are append-only.
type Image struct {
	ID               string    `json:"id"`
	ImageID          string    `json:"image_id"`
	StorageKey       string    `json:"-"`
	UploaderUserID   string    `json:"uploader_user_id"`
	AgentName        string    `json:"agent_name"`
	OriginalFileName string    `json:"original_file_name"`
	ContentType      string    `json:"content_type"`
	ByteSize         int64     `json:"byte_size"`
	MarkdownAlt      string    `json:"markdown_alt"`
	CreatedAt        time.Time `json:"created_at"`
}

// ImageSummary is the dashboard listing view of an image, with the
// derived public path and ready-to-paste markdown snippet.
type ImageSummary struct {
	ID               string    `json:"id"`
	ImageID          string    `json:"image_id"`
	AgentName        string    `json:"agent_name"`
	OriginalFileName string    `json:"original_file_name"`
	ContentType      string    `json:"content_type"`
	ByteSize         int64     `json:"byte_size"`
	MarkdownAlt      string    `json:"markdown_alt"`
	ImagePath        string    `json:"image_path"`
	Markdown         string    `json:"markdown"`
	CreatedAt        time.Time `json:"created_at"`
}
