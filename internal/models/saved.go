package models

import "time"

// SavedScript is a script persisted to the backing store, independent of any
// editing session.
type SavedScript struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Questions []Question `json:"questions" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type SaveScriptRequest struct {
	Name string `json:"name" binding:"required"`
}

type SavedScriptSummary struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
