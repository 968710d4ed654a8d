// Package db owns the Postgres pool and keeps the schema in step with
// the code at startup. Migrations are idempotent CREATE IF NOT EXISTS
// statements; a fresh database boots into a working state with no
// external tooling.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema.
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		slog.Error("unable to connect to database", "err", err)
		os.Exit(1)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		slog.Error("unable to ping database", "err", err)
		os.Exit(1)
	}

	slog.Info("connected to postgres")

	ensureOrdersTable()
	ensureProposalsTable()
	ensureWalletsTable()
	ensureTransactionsTable()
	ensureExchangesTable()
	ensureDisputesTable()
	ensureSettingsTable()
}

// Close releases the pool.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

func exec(label, stmt string) {
	if _, err := Conn.Exec(context.Background(), stmt); err != nil {
		slog.Error("schema bootstrap failed", "step", label, "err", err)
		os.Exit(1)
	}
}

func ensureOrdersTable() {
	exec("orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			master_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL CHECK (kind IN ('repair','part')),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			proposed_price BIGINT,
			agreed_price BIGINT,
			status TEXT NOT NULL CHECK (status IN
				('open','active_search','proposed','accepted','in_progress',
				 'completed','cancelled','deleted','exchanged')),
			is_active_search BOOLEAN NOT NULL DEFAULT FALSE,
			use_escrow BOOLEAN NOT NULL DEFAULT TRUE,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	exec("orders indexes", `
		CREATE INDEX IF NOT EXISTS orders_client_idx ON orders (client_id)`)
	exec("orders master index", `
		CREATE INDEX IF NOT EXISTS orders_master_idx ON orders (master_id)`)
	exec("orders discovery index", `
		CREATE INDEX IF NOT EXISTS orders_discovery_idx
			ON orders (status) WHERE is_active_search AND deleted_at IS NULL`)
}

func ensureProposalsTable() {
	exec("proposals", `
		CREATE TABLE IF NOT EXISTS proposals (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id),
			master_id TEXT NOT NULL,
			price BIGINT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK (status IN ('pending','accepted','rejected')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	exec("proposals index", `
		CREATE INDEX IF NOT EXISTS proposals_order_idx ON proposals (order_id)`)
}

func ensureWalletsTable() {
	exec("wallets", `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			pending BIGINT NOT NULL DEFAULT 0,
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_spent BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (pending >= 0)
		)`)
}

func ensureTransactionsTable() {
	exec("transactions", `
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			reference TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL CHECK (type IN
				('sale','purchase','commission','refund','withdrawal','deposit')),
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'UAH',
			from_user_id TEXT NOT NULL DEFAULT '',
			to_user_id TEXT NOT NULL DEFAULT '',
			platform_commission BIGINT NOT NULL DEFAULT 0,
			commission_rate TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK (status IN
				('pending','held','completed','released','refunded','failed')),
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`)
	exec("transactions reference index", `
		CREATE INDEX IF NOT EXISTS transactions_ref_idx ON transactions (reference)`)
	exec("transactions from index", `
		CREATE INDEX IF NOT EXISTS transactions_from_idx ON transactions (from_user_id)`)
	exec("transactions to index", `
		CREATE INDEX IF NOT EXISTS transactions_to_idx ON transactions (to_user_id)`)
}

func ensureExchangesTable() {
	exec("exchanges", `
		CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			part_a_id TEXT NOT NULL REFERENCES orders(id),
			part_b_id TEXT NOT NULL REFERENCES orders(id),
			proposer_id TEXT NOT NULL,
			responder_id TEXT NOT NULL,
			price_difference BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK (status IN ('proposed','accepted','settled','cancelled')),
			proposer_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			responder_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ
		)`)
}

func ensureDisputesTable() {
	exec("disputes", `
		CREATE TABLE IF NOT EXISTS disputes (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id),
			filer_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','resolved')),
			resolution TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			resolved_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		)`)
}

func ensureSettingsTable() {
	exec("settings", `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`)
}
