package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int        `bun:",pk,autoincrement" json:"id"`
	AddedAt       time.Time  `json:"added_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LibraryID     int        `bun:",notnull" json:"library_id"`
	Library       *Library   `bun:"rel:belongs-to,join:library_id=id" json:"library,omitempty"`
	GoogleBooksID string     `json:"google_books_id"`
	Title         string     `json:"title"`
	Authors       StringList `bun:",notnull" json:"authors"`
	Genres        StringList `bun:",notnull" json:"genres"`
	Description   string     `json:"description"`
	Thumbnail     string     `json:"thumbnail"`
	Tags          StringList `bun:",notnull" json:"tags"`
	Publisher     string     `json:"publisher"`
	PublishedDate string     `json:"published_date"`
	PageCount     int        `json:"page_count"`
	ISBN          string     `bun:"isbn" json:"isbn"`
	IsRead        bool       `json:"is_read"`
	Rating        int        `json:"rating"`
}

// ValidRating reports whether r is an accepted user rating. Zero means
// unrated and can only be stored by import, never set through an update.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
