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
	"github.com/bloodconnect/bloodconnect-api/internal/models"
)

type facilityServiceMock struct {
	byCityRes []models.Facility
	byCityErr error
	nearbyRes []models.Facility
	nearbyErr error
	lastQuery dto.NearbyQuery
}

func (m *facilityServiceMock) FindByCity(ctx context.Context, req dto.CityLookupRequest) ([]models.Facility, error) {
	return m.byCityRes, m.byCityErr
}

func (m *facilityServiceMock) Nearby(ctx context.Context, query dto.NearbyQuery) ([]models.Facility, error) {
	m.lastQuery = query
	return m.nearbyRes, m.nearbyErr
}

func TestFacilityHandlerByCity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &facilityServiceMock{byCityRes: []models.Facility{{Name: "City Blood Bank", City: "Pune"}}}
	h := NewFacilityHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CityLookupRequest{City: "Pune"})
	req, _ := http.NewRequest(http.MethodPost, "/bloodbanks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.ByCity(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "City Blood Bank")
}

func TestFacilityHandlerByCityNoResults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewFacilityHandler(&facilityServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CityLookupRequest{City: "Nowhere"})
	req, _ := http.NewRequest(http.MethodPost, "/bloodbanks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.ByCity(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no blood banks found for city: Nowhere")
}

func TestFacilityHandlerNearby(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &facilityServiceMock{nearbyRes: []models.Facility{{Name: "Lifeline Bank", Source: "source-1"}}}
	h := NewFacilityHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/bloodbanks/nearby?lat=18.52&lon=73.85&location=Pune", nil)
	c.Request = req

	h.Nearby(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lifeline Bank")
	assert.Equal(t, "Pune", mock.lastQuery.Location)
	assert.InDelta(t, 18.52, mock.lastQuery.Latitude, 0.001)
}

func TestFacilityHandlerNearbyMissingParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewFacilityHandler(&facilityServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/bloodbanks/nearby?lat=18.52", nil)
	c.Request = req

	h.Nearby(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
