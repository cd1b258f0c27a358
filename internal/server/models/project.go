package models

import "time"

// Project groups tasks by deliverable. Names are unique; deleting a project
// deletes its tasks.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
