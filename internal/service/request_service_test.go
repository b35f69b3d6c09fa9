package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
)

// mockRequestRepo mimics the conditional-update semantics of the real
// repository: Accept succeeds only while the stored request is pending, and
// flips it atomically.
type mockRequestRepo struct {
	mu        sync.Mutex
	requests  map[string]*models.BloodRequest
	createErr error
	acceptErr error
	accepts   int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[string]*models.BloodRequest)}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.BloodRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = "req-1"
	}
	req.Status = models.StatusPending
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (m *mockRequestRepo) Accept(ctx context.Context, id, donorID string) (bool, error) {
	if m.acceptErr != nil {
		return false, m.acceptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepts++
	req, ok := m.requests[id]
	if !ok || req.Status != models.StatusPending {
		return false, nil
	}
	req.Status = models.StatusAccepted
	req.AcceptedBy = &donorID
	return true, nil
}

func (m *mockRequestRepo) ListPending(ctx context.Context, bloodType, excludeEmail string) ([]models.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BloodRequest
	for _, req := range m.requests {
		if req.Status == models.StatusPending && req.BloodType == bloodType && req.Email != excludeEmail {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) ListByRequester(ctx context.Context, email string) ([]models.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BloodRequest
	for _, req := range m.requests {
		if req.Email == email {
			out = append(out, *req)
		}
	}
	return out, nil
}

type mockDonorDirectory struct {
	donors     map[string]*models.Donor
	byEmail    map[string]*models.Donor
	matches    []models.Donor
	matchesErr error
}

func (m *mockDonorDirectory) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	d, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockDonorDirectory) FindByID(ctx context.Context, id string) (*models.Donor, error) {
	d, ok := m.donors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (m *mockDonorDirectory) FindByBloodTypeExcluding(ctx context.Context, bloodType, excludeEmail string) ([]models.Donor, error) {
	if m.matchesErr != nil {
		return nil, m.matchesErr
	}
	return m.matches, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	notified []string
	failFor  map[string]error
}

func (m *mockNotifier) NotifyDonor(req models.BloodRequest, donor models.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[donor.ID]; ok {
		return err
	}
	m.notified = append(m.notified, donor.ID)
	return nil
}

func validCreatePayload() dto.CreateBloodRequest {
	return dto.CreateBloodRequest{
		Name:      "Jordan Rivers",
		Age:       34,
		BloodType: "O+",
		Email:     "jordan@example.com",
		Phone:     "5551234567",
	}
}

func TestCreateRequestNotifiesMatchingDonors(t *testing.T) {
	repo := newMockRequestRepo()
	donors := &mockDonorDirectory{matches: []models.Donor{
		{ID: "d1", Email: "a@example.com", BloodType: "O+"},
		{ID: "d2", Email: "b@example.com", BloodType: "O+"},
	}}
	notifier := &mockNotifier{}
	svc := NewRequestService(repo, donors, notifier, nil, nil, nil)

	result, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Request.Status)
	assert.Equal(t, 2, result.NotifiedDonors)
	assert.ElementsMatch(t, []string{"d1", "d2"}, notifier.notified)
}

func TestCreateRequestZeroMatchesIsNotAnError(t *testing.T) {
	repo := newMockRequestRepo()
	svc := NewRequestService(repo, &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	result, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, 0, result.NotifiedDonors)
	assert.NotEmpty(t, result.Request.ID)
}

func TestCreateRequestFanOutContinuesPastFailure(t *testing.T) {
	repo := newMockRequestRepo()
	donors := &mockDonorDirectory{matches: []models.Donor{
		{ID: "d1"}, {ID: "d2"}, {ID: "d3"},
	}}
	notifier := &mockNotifier{failFor: map[string]error{"d2": errors.New("queue full")}}
	svc := NewRequestService(repo, donors, notifier, nil, nil, nil)

	result, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, 2, result.NotifiedDonors)
	assert.ElementsMatch(t, []string{"d1", "d3"}, notifier.notified)
}

func TestCreateRequestSurvivesCandidateLookupFailure(t *testing.T) {
	repo := newMockRequestRepo()
	donors := &mockDonorDirectory{matchesErr: errors.New("db down")}
	svc := NewRequestService(repo, donors, &mockNotifier{}, nil, nil, nil)

	result, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, 0, result.NotifiedDonors)

	// The request itself must have been committed.
	stored, err := repo.FindByID(context.Background(), result.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestCreateRequestRejectsUnknownBloodType(t *testing.T) {
	svc := NewRequestService(newMockRequestRepo(), &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	payload := validCreatePayload()
	payload.BloodType = "Q+"
	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func seedPending(repo *mockRequestRepo) *models.BloodRequest {
	req := &models.BloodRequest{
		ID:        "req-1",
		Name:      "Jordan Rivers",
		Age:       34,
		BloodType: "O+",
		Email:     "jordan@example.com",
		Phone:     "5551234567",
		Status:    models.StatusPending,
	}
	repo.requests[req.ID] = req
	return req
}

func TestResolveAcceptWins(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	donors := &mockDonorDirectory{donors: map[string]*models.Donor{
		"d1": {ID: "d1", Name: "Sam", BloodType: "O+", Email: "sam@example.com"},
	}}
	svc := NewRequestService(repo, donors, &mockNotifier{}, nil, nil, nil)

	outcome, err := svc.ResolveViaLink(context.Background(), "req-1", "accept", "d1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)

	stored, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	assert.Equal(t, "d1", *stored.AcceptedBy)
}

func TestResolveRejectLeavesRequestOpen(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	svc := NewRequestService(repo, &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	outcome, err := svc.ResolveViaLink(context.Background(), "req-1", "reject", "d1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)

	stored, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.AcceptedBy)
	assert.Zero(t, repo.accepts)
}

func TestResolveAlreadyResolvedIsIdempotent(t *testing.T) {
	repo := newMockRequestRepo()
	req := seedPending(repo)
	req.Status = models.StatusAccepted
	first := "d1"
	req.AcceptedBy = &first
	donors := &mockDonorDirectory{donors: map[string]*models.Donor{
		"d2": {ID: "d2"},
	}}
	svc := NewRequestService(repo, donors, &mockNotifier{}, nil, nil, nil)

	outcome, err := svc.ResolveViaLink(context.Background(), "req-1", "accept", "d2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, outcome)

	outcome, err = svc.ResolveViaAPI(context.Background(), "req-1", dto.ResolveRequest{Status: models.StatusAccepted, DonorID: "550e8400-e29b-41d4-a716-446655440000"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyResolved, outcome)

	stored, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "d1", *stored.AcceptedBy)
}

func TestResolveInvalidAction(t *testing.T) {
	svc := NewRequestService(newMockRequestRepo(), &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	_, err := svc.ResolveViaLink(context.Background(), "req-1", "maybe", "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveAcceptRequiresDonorID(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	svc := NewRequestService(repo, &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	_, err := svc.ResolveViaLink(context.Background(), "req-1", "accept", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveAcceptUnknownDonor(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	svc := NewRequestService(repo, &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	_, err := svc.ResolveViaLink(context.Background(), "req-1", "accept", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDonor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveUnknownRequest(t *testing.T) {
	svc := NewRequestService(newMockRequestRepo(), &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	_, err := svc.ResolveViaLink(context.Background(), "missing", "accept", "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// Many donors accepting the same request concurrently: exactly one wins,
// every other attempt observes already-resolved, and the stored request
// names a single donor.
func TestConcurrentAcceptsExactlyOneWins(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)

	const n = 32
	directory := &mockDonorDirectory{donors: make(map[string]*models.Donor, n)}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := string(rune('A'+i%26)) + "-donor"
		ids[i] = id
		directory.donors[id] = &models.Donor{ID: id, BloodType: "O+"}
	}
	svc := NewRequestService(repo, directory, &mockNotifier{}, nil, nil, nil)

	outcomes := make([]ResolutionOutcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.ResolveViaLink(context.Background(), "req-1", "accept", ids[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if outcomes[i] == OutcomeAccepted {
			wins++
		} else {
			assert.Equal(t, OutcomeAlreadyResolved, outcomes[i])
		}
	}
	assert.Equal(t, 1, wins)

	stored, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	assert.Contains(t, directory.donors, *stored.AcceptedBy)
}

func TestGetAcceptedDonorRequiresRequesterEmail(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	svc := NewRequestService(repo, &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	_, err := svc.GetAcceptedDonor(context.Background(), "req-1", "intruder@example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGetAcceptedDonorReturnsDonorWhenAccepted(t *testing.T) {
	repo := newMockRequestRepo()
	req := seedPending(repo)
	req.Status = models.StatusAccepted
	id := "d1"
	req.AcceptedBy = &id
	donors := &mockDonorDirectory{donors: map[string]*models.Donor{
		"d1": {ID: "d1", Name: "Sam", BloodType: "O+", Email: "sam@example.com", Phone: "555"},
	}}
	svc := NewRequestService(repo, donors, &mockNotifier{}, nil, nil, nil)

	result, err := svc.GetAcceptedDonor(context.Background(), "req-1", "JORDAN@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, result.Status)
	require.NotNil(t, result.Donor)
	assert.Equal(t, "Sam", result.Donor.Name)
}

func TestGetAcceptedDonorPendingHasNoDonor(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	svc := NewRequestService(repo, &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	result, err := svc.GetAcceptedDonor(context.Background(), "req-1", "jordan@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
	assert.Nil(t, result.Donor)
}

func TestListPendingForUnknownDonorIsEmpty(t *testing.T) {
	svc := NewRequestService(newMockRequestRepo(), &mockDonorDirectory{}, &mockNotifier{}, nil, nil, nil)

	requests, err := svc.ListPendingForDonor(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestListPendingForDonorMatchesBloodType(t *testing.T) {
	repo := newMockRequestRepo()
	seedPending(repo)
	donors := &mockDonorDirectory{byEmail: map[string]*models.Donor{
		"sam@example.com": {ID: "d1", Email: "sam@example.com", BloodType: "O+"},
	}}
	svc := NewRequestService(repo, donors, &mockNotifier{}, nil, nil, nil)

	requests, err := svc.ListPendingForDonor(context.Background(), "sam@example.com")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "req-1", requests[0].ID)
}

func TestRequestQueriesRecordDurations(t *testing.T) {
	metrics := NewMetricsService()
	repo := newMockRequestRepo()
	donors := &mockDonorDirectory{
		matches: []models.Donor{{ID: "d1", Email: "a@example.com", BloodType: "O+"}},
		donors:  map[string]*models.Donor{"d1": {ID: "d1", BloodType: "O+"}},
	}
	svc := NewRequestService(repo, donors, &mockNotifier{}, metrics, nil, nil)

	_, err := svc.Create(context.Background(), validCreatePayload())
	require.NoError(t, err)

	outcome, err := svc.ResolveViaLink(context.Background(), "req-1", "accept", "d1")
	require.NoError(t, err)
	require.Equal(t, OutcomeAccepted, outcome)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `db_query_duration_seconds_count{query="blood_requests_insert"} 1`)
	assert.Contains(t, body, `db_query_duration_seconds_count{query="donors_match"} 1`)
	assert.Contains(t, body, `db_query_duration_seconds_count{query="blood_requests_accept"} 1`)
}
