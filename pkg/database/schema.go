package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables owned by this service
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createProfilesTable,
		createPatientsTable,
		createSyncQueueTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createPatientsIndexes,
		createProfilesIndexes,
		createSyncQueueIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createProfilesTable = `
		CREATE TABLE IF NOT EXISTS profiles (
			user_id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			full_name VARCHAR(200) NOT NULL,
			email VARCHAR(320) UNIQUE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id VARCHAR(50) UNIQUE,
			name VARCHAR(200) NOT NULL,
			email VARCHAR(320),
			age INTEGER NOT NULL CHECK (age >= 0),
			gender VARCHAR(20) NOT NULL,
			blood_group VARCHAR(3) CHECK (blood_group IN ('A+','A-','B+','B-','AB+','AB-','O+','O-')),
			risk_level VARCHAR(10) CHECK (risk_level IN ('low','medium','high')),
			approval_status VARCHAR(10) NOT NULL DEFAULT 'pending'
				CHECK (approval_status IN ('pending','approved','rejected')),
			created_by UUID REFERENCES profiles(user_id),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createSyncQueueTable = `
		CREATE TABLE IF NOT EXISTS sync_queue (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			resource VARCHAR(50) NOT NULL,
			resource_id UUID NOT NULL,
			operation VARCHAR(20) NOT NULL,
			payload JSONB NOT NULL,
			queued_by UUID NOT NULL,
			queued_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createPatientsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_patients_approval_status
			ON patients(approval_status, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_patients_created_by ON patients(created_by);
		CREATE INDEX IF NOT EXISTS idx_patients_name ON patients(LOWER(name));`

	createProfilesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(LOWER(email));`

	createSyncQueueIndexes = `
		CREATE INDEX IF NOT EXISTS idx_sync_queue_queued_at ON sync_queue(queued_at);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_resource ON sync_queue(resource, resource_id);`
)
