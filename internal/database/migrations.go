package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS identities (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		identity_id UUID UNIQUE NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
		first_name VARCHAR(255),
		last_name VARCHAR(255),
		phone VARCHAR(50),
		location VARCHAR(255),
		bio TEXT,
		avatar_url VARCHAR(500),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// One grant per identity; job_seeker is the absence of a row.
	`CREATE TABLE IF NOT EXISTS admin_grants (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		identity_id UUID UNIQUE NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
		role VARCHAR(50) NOT NULL CHECK (role IN ('admin', 'hr_manager', 'super_admin')),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		identity_id UUID NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_identity_id ON refresh_tokens(identity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token_hash ON refresh_tokens(token_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_profiles_name ON profiles(last_name, first_name)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
