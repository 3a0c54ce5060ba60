package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB(ctx context.Context) (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container.Terminate, err
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return container.Terminate, err
	}

	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		return container.Terminate, err
	}
	return container.Terminate, nil
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	teardown, err := setupTestDB(ctx)
	if err != nil {
		// Without Docker the integration tests skip themselves.
		fmt.Fprintf(os.Stderr, "postgres container unavailable: %v\n", err)
		testDB = nil
	}

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	if teardown != nil {
		if err := teardown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "could not teardown postgres container: %v\n", err)
		}
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	if testDB == nil {
		t.Skip("postgres container unavailable")
	}
	return testDB
}

func newTestUser(email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         domain.RoleUser,
		Country:      domain.DefaultCountry,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newTestCategory(name string) *domain.Category {
	now := time.Now().UTC()
	return &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		Slug:      domain.Slugify(name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestProduct(categoryID uuid.UUID, name, price string) *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:         uuid.New(),
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		InStock:    true,
		Quantity:   10,
		Rating:     decimal.Zero,
		Origin:     domain.DefaultOrigin,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func uniqueEmail() string {
	return "user-" + uuid.NewString()[:8] + "@example.com"
}
