package test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/commentorder/internal/telemetry"
)

type PostgresSetup struct {
	ConnStr string
	cleanup func()
}

func (p *PostgresSetup) Cleanup() {
	p.cleanup()
}

func SetupPostgres(ctx context.Context, t *testing.T) *PostgresSetup {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("commentorder"),
		postgres.WithUsername("commentorder"),
		postgres.WithPassword("commentorder"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}

	return &PostgresSetup{ConnStr: connStr, cleanup: cleanup}
}

func runMigrations(connStr string) error {
	migrationsPath := getMigrationsPath()

	m, err := migrate.New(migrationsPath, connStr)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func getMigrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	testDir := filepath.Dir(filename)
	projectRoot := filepath.Dir(testDir)
	migrationsDir := filepath.Join(projectRoot, "migrations")
	return "file://" + migrationsDir
}

func SetupKafka(ctx context.Context, t *testing.T) ([]string, func()) {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers, cleanup
}

// OpenDB connects to the test database and registers cleanup with t.
func OpenDB(t *testing.T, connStr string) *sql.DB {
	t.Helper()

	db, err := telemetry.OpenPostgres(connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	db.SetMaxOpenConns(30)
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	return db
}

type SeedProduct struct {
	ID         string
	Price      string
	TrackStock bool
	Stock      int
	Variants   []string
	SellerID   string
}

// Seed inserts a product, a feed post advertising it and a seller profile.
func Seed(ctx context.Context, t *testing.T, db *sql.DB, feedID string, p SeedProduct) {
	t.Helper()

	mustExec(ctx, t, db, `
		INSERT INTO profiles (user_id, display_name, messaging_id)
		VALUES ($1, 'Seller', $2)
		ON CONFLICT (user_id) DO NOTHING
	`, p.SellerID, "msg-"+p.SellerID)

	variants := p.Variants
	if variants == nil {
		variants = []string{}
	}
	mustExec(ctx, t, db, `
		INSERT INTO products (id, name, price, track_stock, stock_quantity, variants, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, "Product "+p.ID, p.Price, p.TrackStock, p.Stock, pq.Array(variants), p.SellerID)

	mustExec(ctx, t, db, `INSERT INTO feed_posts (id, product_id) VALUES ($1, $2)`, feedID, p.ID)
}

// SeedBuyer inserts a buyer profile. Empty phone leaves the column NULL.
func SeedBuyer(ctx context.Context, t *testing.T, db *sql.DB, userID, phone string) {
	t.Helper()

	var phoneArg any
	if phone != "" {
		phoneArg = phone
	}
	mustExec(ctx, t, db, `
		INSERT INTO profiles (user_id, display_name, phone, address, shipping_method, messaging_id)
		VALUES ($1, $2, $3, '1 Market Road', 'delivery', $4)
	`, userID, "Buyer "+userID, phoneArg, "msg-"+userID)
}

func mustExec(ctx context.Context, t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
}
