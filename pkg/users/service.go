package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/littlelibrary/server/pkg/database"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12

	PlaceholderName     = "Demo User"
	PlaceholderEmail    = "demo@example.com"
	PlaceholderPassword = "password"
)

// Service handles user operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	// ID is only set when a user row has to exist under a known id, such as
	// the placeholder owner.
	ID       int
	Name     string
	Email    string
	Password string
}

// Create creates a new user. Emails are unique regardless of case.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	return s.create(ctx, s.db, opts)
}

func (s *Service) create(ctx context.Context, db bun.IDB, opts CreateUserOptions) (*models.User, error) {
	email := strings.TrimSpace(opts.Email)

	exists, err := db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ? COLLATE NOCASE", email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.ValidationError("Email already exists")
	}

	hashedPassword, err := HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           opts.ID,
		Name:         opts.Name,
		Email:        email,
		PasswordHash: hashedPassword,
	}

	_, err = db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errcodes.ValidationError("Email already exists")
		}
		return nil, errors.WithStack(err)
	}

	return user, nil
}

// Retrieve gets a user by ID.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	return retrieve(ctx, s.db, "u.id = ?", id)
}

// RetrieveByEmail gets a user by email, ignoring case.
func (s *Service) RetrieveByEmail(ctx context.Context, email string) (*models.User, error) {
	return retrieve(ctx, s.db, "u.email = ? COLLATE NOCASE", strings.TrimSpace(email))
}

func retrieve(ctx context.Context, db bun.IDB, where string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := db.NewSelect().
		Model(user).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// EnsureExists returns the user with the given id, creating the placeholder
// owner under that id when no such row exists. It runs on the given db so it
// can take part in a caller's transaction.
func (s *Service) EnsureExists(ctx context.Context, db bun.IDB, id int) (*models.User, error) {
	user, err := retrieve(ctx, db, "u.id = ?", id)
	if err == nil {
		return user, nil
	}
	if !errcodes.HasCode(err, "not_found") {
		return nil, err
	}

	// The placeholder email is unique, so a second owner without a row gets a
	// per-id address.
	email := PlaceholderEmail
	taken, err := db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ? COLLATE NOCASE", email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if taken {
		email = placeholderEmailFor(id)
	}

	return s.create(ctx, db, CreateUserOptions{
		ID:       id,
		Name:     PlaceholderName,
		Email:    email,
		Password: PlaceholderPassword,
	})
}

func placeholderEmailFor(id int) string {
	at := strings.IndexByte(PlaceholderEmail, '@')
	return fmt.Sprintf("%s+%d%s", PlaceholderEmail[:at], id, PlaceholderEmail[at:])
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a password with a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
