package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/middleware"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	"github.com/bloodconnect/bloodconnect-api/internal/service"
)

type donorServiceMock struct {
	registerRes *models.Donor
	registerErr error
	listRes     []models.DonorInfo
	exportBytes []byte
	exportType  string
	exportErr   error
	profileRes  *dto.Profile
	profileErr  error
	updateRes   *models.Donor
	updateErr   error
	lastEmail   string
}

func (m *donorServiceMock) Register(ctx context.Context, req dto.RegisterDonorRequest) (*models.Donor, error) {
	return m.registerRes, m.registerErr
}

func (m *donorServiceMock) List(ctx context.Context) ([]models.DonorInfo, error) {
	return m.listRes, nil
}

func (m *donorServiceMock) Export(ctx context.Context, format service.ExportFormat) ([]byte, string, error) {
	return m.exportBytes, m.exportType, m.exportErr
}

func (m *donorServiceMock) GetProfile(ctx context.Context, email string) (*dto.Profile, error) {
	m.lastEmail = email
	return m.profileRes, m.profileErr
}

func (m *donorServiceMock) UpdateProfile(ctx context.Context, email string, req dto.UpdateProfileRequest) (*models.Donor, error) {
	m.lastEmail = email
	return m.updateRes, m.updateErr
}

func TestDonorHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &donorServiceMock{registerRes: &models.Donor{ID: "d1", Name: "Sam Green", BloodType: "B-", Email: "sam@example.com"}}
	h := NewDonorHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.RegisterDonorRequest{Name: "Sam Green", Age: 29, BloodType: "B-", Email: "sam@example.com", Phone: "555"})
	req, _ := http.NewRequest(http.MethodPost, "/donors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "successfully registered as a donor")
}

func TestDonorHandlerExportSetsAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &donorServiceMock{exportBytes: []byte("Name,Age\n"), exportType: "text/csv"}
	h := NewDonorHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/donors/export?format=csv", nil)
	c.Request = req

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "donors.csv")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
}

func TestDonorHandlerProfileUsesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &donorServiceMock{profileRes: &dto.Profile{Email: "jordan@example.com", IsDonor: false}}
	h := NewDonorHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/profile", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "jordan@example.com"})

	h.GetProfile(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jordan@example.com", mock.lastEmail)
}

func TestDonorHandlerProfileWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDonorHandler(&donorServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/profile", nil)
	c.Request = req

	h.GetProfile(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDonorHandlerUpdateProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &donorServiceMock{updateRes: &models.Donor{ID: "d1", Name: "Sam Green", Phone: "5550001111", Email: "sam@example.com"}}
	h := NewDonorHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.UpdateProfileRequest{Phone: "5550001111"})
	req, _ := http.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "sam@example.com"})

	h.UpdateProfile(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sam@example.com", mock.lastEmail)
	assert.Contains(t, w.Body.String(), "profile updated successfully")
}
