// Package testutil starts a throwaway Postgres for store-level tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/db"
)

var (
	once    sync.Once
	baseDSN string
	hostErr error
)

func startContainer() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		hostErr = fmt.Errorf("start postgres container: %w", err)
		return
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		hostErr = err
		return
	}
	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		hostErr = err
		return
	}
	baseDSN = fmt.Sprintf("postgres://testuser:testpass@%s:%s/%%s?sslmode=disable", host, port.Port())
}

// SetupTestDB returns a migrated database private to the calling test.
// Tests are skipped in -short mode or when no container runtime is available.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	once.Do(startContainer)
	if hostErr != nil {
		t.Fatalf("postgres unavailable: %v", hostErr)
	}

	admin, err := db.Connect(fmt.Sprintf(baseDSN, "testdb"), db.Options{MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("connect admin db: %v", err)
	}
	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := admin.Exec("CREATE DATABASE " + name).Error; err != nil {
		t.Fatalf("create database: %v", err)
	}
	closeDB(admin)

	gdb, err := db.Connect(fmt.Sprintf(baseDSN, name), db.Options{MaxOpenConns: 5})
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { closeDB(gdb) })
	return gdb
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}
