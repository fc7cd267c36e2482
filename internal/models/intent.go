package models

import "time"

// UploadIntent is a short-lived reservation binding an authenticated
// token and declared file metadata to a single pending blob write.
// ConsumedAt transitions nil -> set exactly once, on finalize. Intents
// are never deleted; they remain as an audit trail.
type UploadIntent struct {
	ID               string     `json:"id"`
	TokenID          string     `json:"token_id"`
	UserID           string     `json:"user_id"`
	AgentName        string     `json:"agent_name"`
	OriginalFileName string     `json:"original_file_name"`
	ContentType      string     `json:"content_type"`
	ByteSize         int64      `json:"byte_size"`
	MarkdownAlt      string     `json:"markdown_alt"`
	StorageKey       string     `json:"storage_key"`
	CreatedAt        time.Time  `json:"created_at"`
	ConsumedAt       *time.Time `json:"consumed_at,omitempty"`
}
