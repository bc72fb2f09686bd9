package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createRestaurantsTable,
		createPricePlansTable,
		createReservationsTable,
		createPaymentsTable,
		createAuditLogsTable,
		createReservationsDateIndex,
		createPaymentsStatusIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(100) NOT NULL,
    display_name VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'staff',
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CHECK (role IN ('staff', 'admin'))
);`

const createRestaurantsTable = `
CREATE TABLE IF NOT EXISTS restaurants (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    name_ja VARCHAR(255),
    name_ko VARCHAR(255),
    address TEXT,
    phone VARCHAR(50),
    cuisine VARCHAR(100),
    description_en TEXT,
    description_ja TEXT,
    description_ko TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createPricePlansTable = `
CREATE TABLE IF NOT EXISTS price_plans (
    id SERIAL PRIMARY KEY,
    name VARCHAR(20) NOT NULL,
    min_party_size INTEGER NOT NULL,
    max_party_size INTEGER NOT NULL,
    amount BIGINT NOT NULL,
    currency VARCHAR(3) NOT NULL DEFAULT 'JPY',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    description_en TEXT,
    description_ja TEXT,
    description_ko TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (name IN ('small', 'medium', 'large')),
    CHECK (min_party_size <= max_party_size),
    CHECK (amount > 0)
);`

const createReservationsTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS reservations (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    restaurant_id INTEGER NOT NULL REFERENCES restaurants(id),
    reservation_date DATE NOT NULL,
    reservation_time VARCHAR(5) NOT NULL,
    party_size INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(50) NOT NULL,
    special_requests TEXT,
    locale VARCHAR(5) NOT NULL DEFAULT 'en',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_amount BIGINT NOT NULL DEFAULT 0,
    transaction_id VARCHAR(255),
    cancellation_reason TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
    CHECK (payment_status IN ('pending', 'completed', 'pending_manual'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id SERIAL PRIMARY KEY,
    order_id VARCHAR(255) UNIQUE NOT NULL,
    payment_id VARCHAR(255),
    reservation_id UUID REFERENCES reservations(id),
    amount BIGINT NOT NULL,
    currency VARCHAR(3) NOT NULL DEFAULT 'JPY',
    status VARCHAR(20) NOT NULL DEFAULT 'initiated',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('initiated', 'captured', 'failed', 'cancelled'))
);`

const createAuditLogsTable = `
CREATE TABLE IF NOT EXISTS audit_logs (
    id SERIAL PRIMARY KEY,
    actor VARCHAR(255) NOT NULL,
    action VARCHAR(100) NOT NULL,
    target_id VARCHAR(255) NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createReservationsDateIndex = `
CREATE INDEX IF NOT EXISTS reservations_date_idx
ON reservations (reservation_date, restaurant_id);`

const createPaymentsStatusIndex = `
CREATE INDEX IF NOT EXISTS payments_status_created_idx
ON payments (status, created_at);`
