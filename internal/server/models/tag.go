package models

import "time"

// Tag is a free-form label attachable to tasks. Names are unique.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
