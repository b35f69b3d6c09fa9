package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bloodconnect/bloodconnect-api/internal/models"
)

// DonorRepository provides database access to the donor directory.
type DonorRepository struct {
	db *sqlx.DB
}

// NewDonorRepository creates a new instance of DonorRepository.
func NewDonorRepository(db *sqlx.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

// FindByEmail returns a donor by email address.
func (r *DonorRepository) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, created_at, updated_at FROM donors WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var donor models.Donor
	if err := r.db.GetContext(ctx, &donor, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find donor by email: %w", err)
	}
	return &donor, nil
}

// FindByID returns a donor by identifier.
func (r *DonorRepository) FindByID(ctx context.Context, id string) (*models.Donor, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, created_at, updated_at FROM donors WHERE id = $1 LIMIT 1`
	var donor models.Donor
	if err := r.db.GetContext(ctx, &donor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return &donor, nil
}

// FindByBloodTypeExcluding returns all donors of the given blood type whose
// email differs from excludeEmail. Used for request fan-out candidate lookup.
func (r *DonorRepository) FindByBloodTypeExcluding(ctx context.Context, bloodType, excludeEmail string) ([]models.Donor, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, created_at, updated_at FROM donors WHERE blood_type = $1 AND LOWER(email) <> LOWER($2) ORDER BY created_at`
	var donors []models.Donor
	if err := r.db.SelectContext(ctx, &donors, query, bloodType, excludeEmail); err != nil {
		return nil, fmt.Errorf("find donors by blood type: %w", err)
	}
	return donors, nil
}

// List returns the full donor roster.
func (r *DonorRepository) List(ctx context.Context) ([]models.Donor, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, created_at, updated_at FROM donors ORDER BY created_at`
	var donors []models.Donor
	if err := r.db.SelectContext(ctx, &donors, query); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	return donors, nil
}

// Create inserts a new donor record.
func (r *DonorRepository) Create(ctx context.Context, donor *models.Donor) error {
	if donor.ID == "" {
		donor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now

	const query = `INSERT INTO donors (id, name, age, blood_type, email, phone, created_at, updated_at) VALUES (:id, :name, :age, :blood_type, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, donor); err != nil {
		return fmt.Errorf("create donor: %w", err)
	}
	return nil
}

// Update updates mutable profile fields of a donor, keyed by email.
func (r *DonorRepository) Update(ctx context.Context, donor *models.Donor) error {
	donor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE donors SET name = :name, age = :age, phone = :phone, updated_at = :updated_at WHERE LOWER(email) = LOWER(:email)`
	res, err := r.db.NamedExecContext(ctx, query, donor)
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
