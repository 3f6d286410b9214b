package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultLibraryName is the name given to the library created on demand the
// first time an owner adds a book.
const DefaultLibraryName = "Default Library"

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	OwnerID   int       `bun:",nullzero" json:"owner_id"`
	Name      string    `bun:",nullzero" json:"name"`
}
