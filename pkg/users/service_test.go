package users

import (
	"context"
	"database/sql"
	"testing"

	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestServiceCreate_HashesPassword(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserOptions{
		Name:     "Alex",
		Email:    " alex@example.com ",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, CheckPassword("password123", user.PasswordHash))
	assert.False(t, CheckPassword("wrong", user.PasswordHash))
}

func TestServiceCreate_RejectsDuplicateEmailIgnoringCase(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserOptions{Name: "Alex", Email: "alex@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserOptions{Name: "Alex", Email: "ALEX@example.com", Password: "password123"})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, "validation_error"))
}

func TestServiceRetrieve(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserOptions{Name: "Sam", Email: "sam@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := svc.Retrieve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)

	user, err = svc.RetrieveByEmail(ctx, "SAM@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Retrieve(ctx, created.ID+100)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, "not_found"))
}

func TestServiceEnsureExists(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.EnsureExists(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, PlaceholderName, user.Name)
	assert.Equal(t, PlaceholderEmail, user.Email)
	assert.True(t, CheckPassword(PlaceholderPassword, user.PasswordHash))

	again, err := svc.EnsureExists(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	other, err := svc.EnsureExists(ctx, db, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, other.ID)
	assert.Equal(t, "demo+7@example.com", other.Email)

	count, err := db.NewSelect().Table("users").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
