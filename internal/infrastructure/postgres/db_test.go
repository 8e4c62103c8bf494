package postgres

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPoolWithConfigRejectsInvalidURL(t *testing.T) {
	if _, err := NewPoolWithConfig(context.Background(), PoolConfig{DatabaseURL: "not-a-url"}); err == nil {
		t.Fatalf("expected error when parsing invalid URL")
	}
}

func TestNewPoolWithConfigPingFailure(t *testing.T) {
	cfg := PoolConfig{
		DatabaseURL:    "postgres://transfer@127.0.0.1:1/transfer?connect_timeout=1",
		MaxConns:       1,
		MinConns:       0,
		ConnectTimeout: 2 * time.Second,
	}

	if _, err := NewPoolWithConfig(context.Background(), cfg); err == nil {
		t.Fatalf("expected error when pool cannot connect")
	}
}

func TestRunMigrationsRejectsMissingSource(t *testing.T) {
	err := RunMigrations("postgres://transfer@127.0.0.1:1/transfer?sslmode=disable&connect_timeout=1", t.TempDir()+"/missing", zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}

func TestMigrateLogger(t *testing.T) {
	var buf bytes.Buffer
	l := migrateLogger{logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	if !l.Verbose() {
		t.Fatalf("debug logger should be verbose")
	}
	l.Printf("Start buffering %d/u %s\n", 1, "create_transaction_records")
	if !strings.Contains(buf.String(), `"message":"Start buffering 1/u create_transaction_records"`) {
		t.Fatalf("unexpected log output %s", buf.String())
	}

	quiet := migrateLogger{logger: zerolog.New(&buf).Level(zerolog.InfoLevel)}
	if quiet.Verbose() {
		t.Fatalf("info logger should not be verbose")
	}
}
