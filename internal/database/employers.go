package database

import (
	"context"
	"fmt"
	"time"

	"skirental/internal/models"
)

const employerColumns = `id, first_name, last_name, email, role, created_at`

func (db *DB) CreateEmployer(ctx context.Context, e *models.Employer) error {
	now := time.Now()
	id, err := insertID(ctx, db,
		`INSERT INTO employers (first_name, last_name, email, role, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		e.FirstName, e.LastName, e.Email, e.Role, now)
	if err != nil {
		return fmt.Errorf("failed to create employer: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

// UpsertEmployerByEmail creates the employer or refreshes name and role of an existing one.
func (db *DB) UpsertEmployerByEmail(ctx context.Context, e *models.Employer) error {
	now := time.Now()
	id, err := insertID(ctx, db, `INSERT INTO employers (first_name, last_name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role
		RETURNING id`,
		e.FirstName, e.LastName, e.Email, e.Role, now)
	if err != nil {
		return fmt.Errorf("failed to upsert employer %s: %w", e.Email, err)
	}
	e.ID = id
	return nil
}

func (db *DB) GetEmployer(ctx context.Context, id int64) (*models.Employer, error) {
	var e models.Employer
	if err := db.GetContext(ctx, &e, db.Rebind(`SELECT `+employerColumns+` FROM employers WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "employer", id)
	}
	return &e, nil
}

// ListOwners returns every employer with the OWNER role; they receive copies of new rentals.
func (db *DB) ListOwners(ctx context.Context) ([]*models.Employer, error) {
	var owners []*models.Employer
	err := db.SelectContext(ctx, &owners,
		db.Rebind(`SELECT `+employerColumns+` FROM employers WHERE role = ? ORDER BY id`), models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}
