package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
	"github.com/bloodconnect/bloodconnect-api/pkg/export"
)

type donorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Donor, error)
	List(ctx context.Context) ([]models.Donor, error)
	Create(ctx context.Context, donor *models.Donor) error
	Update(ctx context.Context, donor *models.Donor) error
}

type profileUserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ExportFormat selects the roster export encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// DonorService provides donor directory use cases.
type DonorService struct {
	repo      donorRepository
	users     profileUserFinder
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDonorService constructs a DonorService. metrics may be nil.
func NewDonorService(repo donorRepository, users profileUserFinder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DonorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DonorService{
		repo:      repo,
		users:     users,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Register records a person as willing to donate. Emails are unique across
// the directory.
func (s *DonorService) Register(ctx context.Context, req dto.RegisterDonorRequest) (*models.Donor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid donor payload")
	}
	if !models.IsValidBloodType(req.BloodType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown blood type")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already registered as a donor")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check donor directory")
	}

	donor := &models.Donor{
		Name:      req.Name,
		Age:       req.Age,
		BloodType: req.BloodType,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := s.repo.Create(ctx, donor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register donor")
	}

	s.logger.Info("donor registered", zap.String("donor_id", donor.ID), zap.String("blood_type", donor.BloodType))
	return donor, nil
}

// List returns the public donor roster.
func (s *DonorService) List(ctx context.Context) ([]models.DonorInfo, error) {
	start := time.Now()
	donors, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donors")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("donors_list", time.Since(start))
	}
	infos := make([]models.DonorInfo, 0, len(donors))
	for i := range donors {
		infos = append(infos, donors[i].Public())
	}
	return infos, nil
}

// Export renders the donor roster in the requested format and returns the
// bytes together with a content type.
func (s *DonorService) Export(ctx context.Context, format ExportFormat) ([]byte, string, error) {
	start := time.Now()
	donors, err := s.repo.List(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list donors")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("donors_list", time.Since(start))
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Age", "Blood Type", "Email", "Phone"},
	}
	for i := range donors {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":       donors[i].Name,
			"Age":        fmt.Sprintf("%d", donors[i].Age),
			"Blood Type": donors[i].BloodType,
			"Email":      donors[i].Email,
			"Phone":      donors[i].Phone,
		})
	}

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, "Donor Roster")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// GetProfile returns a donor profile when one exists, falling back to the
// bare account identity the way the original app serves non-donor users.
func (s *DonorService) GetProfile(ctx context.Context, email string) (*dto.Profile, error) {
	donor, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return &dto.Profile{
			Name:      donor.Name,
			Age:       donor.Age,
			BloodType: donor.BloodType,
			Email:     donor.Email,
			Phone:     donor.Phone,
			IsDonor:   true,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return &dto.Profile{Username: user.Username, Email: user.Email, IsDonor: false}, nil
}

// UpdateProfile updates mutable fields of a donor profile.
func (s *DonorService) UpdateProfile(ctx context.Context, email string, req dto.UpdateProfileRequest) (*models.Donor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	donor, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
	}

	if strings.TrimSpace(req.Name) != "" {
		donor.Name = req.Name
	}
	if req.Age != 0 {
		donor.Age = req.Age
	}
	if strings.TrimSpace(req.Phone) != "" {
		donor.Phone = req.Phone
	}

	if err := s.repo.Update(ctx, donor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "donor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update donor")
	}
	return donor, nil
}
