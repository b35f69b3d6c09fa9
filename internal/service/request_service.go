package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, req *models.BloodRequest) error
	FindByID(ctx context.Context, id string) (*models.BloodRequest, error)
	Accept(ctx context.Context, id, donorID string) (bool, error)
	ListPending(ctx context.Context, bloodType, excludeEmail string) ([]models.BloodRequest, error)
	ListByRequester(ctx context.Context, email string) ([]models.BloodRequest, error)
}

type donorDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.Donor, error)
	FindByID(ctx context.Context, id string) (*models.Donor, error)
	FindByBloodTypeExcluding(ctx context.Context, bloodType, excludeEmail string) ([]models.Donor, error)
}

type donorNotifier interface {
	NotifyDonor(req models.BloodRequest, donor models.Donor) error
}

// ErrUnknownDonor is returned when an acceptance names a donor id that is
// not in the directory.
var ErrUnknownDonor = appErrors.Clone(appErrors.ErrNotFound, "donor not found")

// ResolutionOutcome describes what a resolution attempt did.
type ResolutionOutcome int

const (
	// OutcomeAccepted: this attempt won the pending-only conditional update.
	OutcomeAccepted ResolutionOutcome = iota
	// OutcomeRejected: a reject was acknowledged; nothing was mutated and
	// the request stays open to other donors.
	OutcomeRejected
	// OutcomeAlreadyResolved: the request was no longer pending, either on
	// the initial read or because a concurrent attempt won the update.
	OutcomeAlreadyResolved
)

// RequestService implements the blood request lifecycle: intake with donor
// fan-out, dual-channel resolution, and the status/match query surface.
//
// Both resolution channels route through the same pending-gated conditional
// update, so at most one donor is ever recorded as having accepted a request
// no matter how many act concurrently.
type RequestService struct {
	repo      requestRepository
	donors    donorDirectory
	notifier  donorNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs a RequestService. metrics may be nil.
func NewRequestService(repo requestRepository, donors donorDirectory, notifier donorNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{repo: repo, donors: donors, notifier: notifier, metrics: metrics, validator: validate, logger: logger}
}

// Create persists a new pending request and fans notifications out to every
// compatible donor except the requester. The request commit is all-or-
// nothing; the fan-out is best-effort and a failed notification neither
// aborts the creation nor the remaining notifications. Zero matching donors
// is a valid outcome.
func (s *RequestService) Create(ctx context.Context, req dto.CreateBloodRequest) (*dto.CreateBloodRequestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if !models.IsValidBloodType(req.BloodType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown blood type")
	}

	request := &models.BloodRequest{
		Name:      req.Name,
		Age:       req.Age,
		BloodType: req.BloodType,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	start := time.Now()
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("blood_requests_insert", time.Since(start))
	}

	matchStart := time.Now()
	candidates, err := s.donors.FindByBloodTypeExcluding(ctx, req.BloodType, req.Email)
	if err != nil {
		// The request is already committed; a failed candidate lookup only
		// costs the fan-out.
		s.logger.Warn("candidate donor lookup failed", zap.String("request_id", request.ID), zap.Error(err))
		return &dto.CreateBloodRequestResult{Request: *request}, nil
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("donors_match", time.Since(matchStart))
	}

	notified := 0
	for i := range candidates {
		if err := s.notifier.NotifyDonor(*request, candidates[i]); err != nil {
			s.logger.Warn("failed to enqueue donor notification",
				zap.String("request_id", request.ID),
				zap.String("donor_id", candidates[i].ID),
				zap.Error(err))
			continue
		}
		notified++
	}

	s.logger.Info("blood request created",
		zap.String("request_id", request.ID),
		zap.String("blood_type", request.BloodType),
		zap.Int("notified_donors", notified))
	return &dto.CreateBloodRequestResult{Request: *request, NotifiedDonors: notified}, nil
}

// ResolveViaLink handles the emailed-link channel. An accept needs the donor
// identifier carried by the link.
func (s *RequestService) ResolveViaLink(ctx context.Context, requestID, action, donorID string) (ResolutionOutcome, error) {
	var status models.RequestStatus
	switch action {
	case "accept":
		status = models.StatusAccepted
	case "reject":
		status = models.StatusRejected
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid action")
	}
	return s.resolve(ctx, requestID, status, donorID)
}

// ResolveViaAPI handles the in-app channel with identical semantics.
func (s *RequestService) ResolveViaAPI(ctx context.Context, requestID string, req dto.ResolveRequest) (ResolutionOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}
	if !models.IsValidResolution(req.Status) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}
	return s.resolve(ctx, requestID, req.Status, req.DonorID)
}

// resolve is the single path both channels share. Acceptance is a
// conditional update gated on the request still being pending; rejections
// never mutate.
func (s *RequestService) resolve(ctx context.Context, requestID string, status models.RequestStatus, donorID string) (ResolutionOutcome, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "blood request not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	if request.Status != models.StatusPending {
		return OutcomeAlreadyResolved, nil
	}

	if status == models.StatusRejected {
		s.logger.Info("request rejection acknowledged", zap.String("request_id", requestID))
		return OutcomeRejected, nil
	}

	if strings.TrimSpace(donorID) == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "donor id is required to accept")
	}
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownDonor
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
	}

	start := time.Now()
	won, err := s.repo.Accept(ctx, requestID, donor.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("blood_requests_accept", time.Since(start))
	}
	if !won {
		// Lost the race: another resolution landed between the read and the
		// conditional update.
		return OutcomeAlreadyResolved, nil
	}

	s.logger.Info("request accepted",
		zap.String("request_id", requestID),
		zap.String("donor_id", donor.ID))
	return OutcomeAccepted, nil
}

// GetAcceptedDonor exposes the resolution outcome to the requester. The
// caller must present the requester's own email; comparison is
// case-insensitive.
func (s *RequestService) GetAcceptedDonor(ctx context.Context, requestID, requesterEmail string) (*dto.AcceptedDonorResult, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blood request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	if !strings.EqualFold(request.Email, requesterEmail) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	result := &dto.AcceptedDonorResult{Status: request.Status}
	if request.Status == models.StatusAccepted && request.AcceptedBy != nil {
		donor, err := s.donors.FindByID(ctx, *request.AcceptedBy)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "accepting donor no longer exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
		}
		info := donor.Public()
		result.Donor = &info
	}
	return result, nil
}

// ListPendingForDonor returns the open requests a donor could serve. An
// email that is not in the donor directory yields an empty list, not an
// error.
func (s *RequestService) ListPendingForDonor(ctx context.Context, donorEmail string) ([]models.BloodRequest, error) {
	donor, err := s.donors.FindByEmail(ctx, donorEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.BloodRequest{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor")
	}

	requests, err := s.repo.ListPending(ctx, donor.BloodType, donorEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	if requests == nil {
		requests = []models.BloodRequest{}
	}
	return requests, nil
}

// ListMine returns every request the given email has created, any status.
func (s *RequestService) ListMine(ctx context.Context, requesterEmail string) ([]models.BloodRequest, error) {
	requests, err := s.repo.ListByRequester(ctx, requesterEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if requests == nil {
		requests = []models.BloodRequest{}
	}
	return requests, nil
}
