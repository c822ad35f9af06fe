package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID        int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Name      string     `json:"name"`
	Tags      StringList `bun:",notnull" json:"tags"`
	Books     []*Book    `bun:"rel:has-many,join:id=library_id" json:"books,omitempty"`
	BookCount int        `bun:",scanonly" json:"book_count"`
}
