package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is a catalog record. At most one exists per canonical ISBN.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID                int       `bun:",pk,nullzero" json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ISBN              string    `bun:"isbn,nullzero" json:"isbn"`
	Title             string    `bun:",nullzero" json:"title"`
	Author            *string   `json:"author"`
	Description       *string   `json:"description"`
	Genre             *string   `json:"genre"`
	Publisher         *string   `json:"publisher"`
	PublicationYear   *int      `json:"publication_year"`
	PageCount         *int      `json:"page_count"`
	CoverImageURL     *string   `bun:"cover_image_url" json:"cover_image_url"`
	ExternalCatalogID *string   `json:"external_catalog_id"`
}
