package books

import (
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/bookcase/pkg/errcodes"
	"github.com/shishobooks/bookcase/pkg/models"
)

// AddBookPayload mirrors catalog.CatalogEntry so search results can be posted
// back as-is. book_id is the key older clients send for the catalog id.
type AddBookPayload struct {
	GoogleBooksID string   `json:"google_books_id" mod:"trim" validate:"max=100"`
	BookID        string   `json:"book_id,omitempty" mod:"trim" validate:"max=100"`
	Title         string   `json:"title" mod:"trim" validate:"max=500"`
	Authors       []string `json:"authors" validate:"max=50,dive,max=200"`
	Genres        []string `json:"genres" validate:"max=50,dive,max=200"`
	Description   string   `json:"description"`
	Thumbnail     string   `json:"thumbnail" mod:"trim" validate:"url"`
	Publisher     string   `json:"publisher" mod:"trim" validate:"max=200"`
	PublishedDate string   `json:"publishedDate" mod:"trim" validate:"max=50"`
	PageCount     int      `json:"pageCount" validate:"min=0"`
	ISBN          string   `json:"isbn" mod:"trim" validate:"max=20"`
}

func (p AddBookPayload) catalogID() string {
	if p.GoogleBooksID != "" {
		return p.GoogleBooksID
	}
	return p.BookID
}

type ListBooksQuery struct {
	Search *string `query:"search" json:"search,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Sort   string  `query:"sort" json:"sort,omitempty" default:"date_desc" validate:"sortorder"`
	Genre  *string `query:"genre" json:"genre,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Rating *int    `query:"rating" json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	Read   *bool   `query:"read" json:"read,omitempty"`
}

type UpdateTagsPayload struct {
	Tags TagList `json:"tags" validate:"max=50,dive,max=100"`
}

type UpdateStatusPayload struct {
	IsRead *bool `json:"is_read" validate:"required"`
}

type UpdateRatingPayload struct {
	Rating *int `json:"rating" validate:"required,min=1,max=5"`
}

// TagList accepts either a JSON array of strings or a single comma-separated
// string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = TagList(models.ParseStringList(models.StringList(list).String()))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TagList(models.ParseStringList(s))
		return nil
	}

	return errcodes.ValidationTypeError(`"tags" should be of type []string or string`)
}
