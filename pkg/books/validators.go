package books

import (
	"github.com/littlelibrary/server/pkg/models"
	"github.com/littlelibrary/server/pkg/recommendations"
)

type ListBooksQuery struct {
	Filter *string `query:"filter" json:"filter,omitempty" validate:"omitempty,max=100"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=500"`
}

type SearchBooksQuery struct {
	Query string `query:"query" json:"query" mod:"trim" validate:"required,max=500"`
}

type LookupBooksQuery struct {
	ISBN  string `query:"isbn" json:"isbn,omitempty" mod:"trim" validate:"max=32"`
	Title string `query:"title" json:"title,omitempty" mod:"trim" validate:"max=500"`
}

type ShelvesPayload struct {
	GenreShelf string `json:"genre_shelf" mod:"trim" validate:"max=100"`
	AgeShelf   string `json:"age_shelf" mod:"trim" validate:"max=100"`
}

// BookPayload describes a book the client already has metadata for.
type BookPayload struct {
	ISBN              string  `json:"isbn" mod:"trim" validate:"max=32"`
	Title             string  `json:"title" mod:"trim" validate:"required,max=500"`
	Author            *string `json:"author,omitempty" validate:"omitempty,max=500"`
	Description       *string `json:"description,omitempty"`
	Genre             *string `json:"genre,omitempty" validate:"omitempty,max=100"`
	Publisher         *string `json:"publisher,omitempty" validate:"omitempty,max=500"`
	PublicationYear   *int    `json:"publication_year,omitempty" validate:"omitempty,min=0,max=9999"`
	PageCount         *int    `json:"page_count,omitempty" validate:"omitempty,min=0"`
	CoverImageURL     *string `json:"cover_image_url,omitempty" validate:"omitempty,httpurl"`
	ExternalCatalogID *string `json:"external_catalog_id,omitempty"`
}

func (p BookPayload) toBook() *models.Book {
	return &models.Book{
		ISBN:              p.ISBN,
		Title:             p.Title,
		Author:            p.Author,
		Description:       p.Description,
		Genre:             p.Genre,
		Publisher:         p.Publisher,
		PublicationYear:   p.PublicationYear,
		PageCount:         p.PageCount,
		CoverImageURL:     p.CoverImageURL,
		ExternalCatalogID: p.ExternalCatalogID,
	}
}

type AddToLibraryPayload struct {
	Book       BookPayload `json:"book"`
	GenreShelf string      `json:"genre_shelf" mod:"trim" validate:"max=100"`
	AgeShelf   string      `json:"age_shelf" mod:"trim" validate:"max=100"`
}

type CheckDuplicatePayload struct {
	ISBN string `json:"isbn" mod:"trim" validate:"max=32"`
}

type CheckDuplicateResponse struct {
	IsDuplicate bool `json:"is_duplicate"`
}

type ScanResponse struct {
	Book        *models.Book `json:"book"`
	IsDuplicate bool         `json:"is_duplicate"`
}

type UpdateLibraryBookPayload struct {
	IsFavorite     *bool   `json:"is_favorite,omitempty"`
	PersonalRating *int    `json:"personal_rating,omitempty" validate:"omitempty,min=0,max=5"`
	PersonalNotes  *string `json:"personal_notes,omitempty" validate:"omitempty,max=5000"`
	MarkRead       bool    `json:"mark_read,omitempty"`
}

type RecommendationsQuery struct {
	By    string `query:"by" json:"by,omitempty" mod:"trim,lcase"`
	Value string `query:"value" json:"value,omitempty" mod:"trim"`
	Title string `query:"title" json:"title,omitempty" mod:"trim" validate:"max=500"`
}

// RecommendationQueryPayload is the body of the object-based
// recommendation query.
type RecommendationQueryPayload = recommendations.Query
