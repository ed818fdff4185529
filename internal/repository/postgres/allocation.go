package postgres

import "database/sql"

// AllocationRepo implements allocation.Repository against PostgreSQL.
type AllocationRepo struct{ catalog }

// NewAllocationRepo creates a Postgres-backed allocation repository.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{catalog{db: db}} }
