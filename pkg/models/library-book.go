package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Shelf defaults applied when a link is created or updated without them.
const (
	DefaultGenreShelf = "General"
	DefaultAgeShelf   = ""
)

// LibraryBook links a Book into a Library. There is at most one per
// (library_id, book_id), and its shelf position never changes after creation.
type LibraryBook struct {
	bun.BaseModel `bun:"table:library_books,alias:lb"`

	ID             int        `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LibraryID      int        `bun:",nullzero" json:"library_id"`
	BookID         int        `bun:",nullzero" json:"book_id"`
	Book           *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	ShelfPosition  int        `json:"shelf_position"`
	GenreShelf     string     `json:"genre_shelf"`
	AgeShelf       string     `json:"age_shelf"`
	IsFavorite     bool       `json:"is_favorite"`
	PersonalRating *int       `json:"personal_rating"`
	PersonalNotes  *string    `json:"personal_notes"`
	DateAdded      time.Time  `json:"date_added"`
	LastReadDate   *time.Time `json:"last_read_date"`
}
