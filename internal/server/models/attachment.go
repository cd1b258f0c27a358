package models

import "time"

// Attachment is metadata for a file stored in the S3 bucket alongside a
// task. The payload itself never transits this server; clients upload and
// download through presigned URLs.
type Attachment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task"`
	FileName   string    `json:"fileName"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}
