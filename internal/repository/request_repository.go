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

// RequestRepository provides database access for blood requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new blood request with status pending.
func (r *RequestRepository) Create(ctx context.Context, req *models.BloodRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.StatusPending
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO blood_requests (id, name, age, blood_type, email, phone, status, accepted_by, created_at, updated_at) VALUES (:id, :name, :age, :blood_type, :email, :phone, :status, :accepted_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create blood request: %w", err)
	}
	return nil
}

// FindByID returns a blood request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, status, accepted_by, created_at, updated_at FROM blood_requests WHERE id = $1 LIMIT 1`
	var req models.BloodRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find blood request by id: %w", err)
	}
	return &req, nil
}

// Accept transitions a pending request to accepted and records the donor in
// one conditional update. The status predicate makes the transition a
// compare-and-set: under concurrent attempts exactly one caller observes
// true, every other caller observes false. Callers must not fall back to a
// read-then-write update.
func (r *RequestRepository) Accept(ctx context.Context, id, donorID string) (bool, error) {
	const query = `UPDATE blood_requests SET status = $2, accepted_by = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.StatusAccepted, donorID, time.Now().UTC(), models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("accept blood request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept blood request rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListPending returns pending requests matching a blood type, excluding
// those created by excludeEmail.
func (r *RequestRepository) ListPending(ctx context.Context, bloodType, excludeEmail string) ([]models.BloodRequest, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, status, accepted_by, created_at, updated_at FROM blood_requests WHERE status = $1 AND blood_type = $2 AND LOWER(email) <> LOWER($3) ORDER BY created_at DESC`
	var requests []models.BloodRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.StatusPending, bloodType, excludeEmail); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// ListByRequester returns every request created by the given email, any status.
func (r *RequestRepository) ListByRequester(ctx context.Context, email string) ([]models.BloodRequest, error) {
	const query = `SELECT id, name, age, blood_type, email, phone, status, accepted_by, created_at, updated_at FROM blood_requests WHERE LOWER(email) = LOWER($1) ORDER BY created_at DESC`
	var requests []models.BloodRequest
	if err := r.db.SelectContext(ctx, &requests, query, email); err != nil {
		return nil, fmt.Errorf("list requests by requester: %w", err)
	}
	return requests, nil
}
