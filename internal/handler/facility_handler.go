package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
	"github.com/bloodconnect/bloodconnect-api/pkg/response"
)

type facilityService interface {
	FindByCity(ctx context.Context, req dto.CityLookupRequest) ([]models.Facility, error)
	Nearby(ctx context.Context, query dto.NearbyQuery) ([]models.Facility, error)
}

// FacilityHandler exposes the blood bank locator endpoints.
type FacilityHandler struct {
	service facilityService
}

// NewFacilityHandler builds a new handler.
func NewFacilityHandler(service facilityService) *FacilityHandler {
	return &FacilityHandler{service: service}
}

// ByCity godoc
// @Summary Look up blood banks by city from the bundled dataset
// @Tags Facilities
// @Accept json
// @Produce json
// @Param payload body dto.CityLookupRequest true "City payload"
// @Success 200 {object} response.Envelope
// @Router /bloodbanks [post]
func (h *FacilityHandler) ByCity(c *gin.Context) {
	var req dto.CityLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "please provide a city in the request body"))
		return
	}
	facilities, err := h.service.FindByCity(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := ""
	if len(facilities) == 0 {
		message = "no blood banks found for city: " + req.City
	}
	response.JSON(c, http.StatusOK, facilities, message)
}

// Nearby godoc
// @Summary Locate blood banks around a coordinate via external sources
// @Tags Facilities
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param location query string true "Location name"
// @Success 200 {object} response.Envelope
// @Router /bloodbanks/nearby [get]
func (h *FacilityHandler) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	location := c.Query("location")
	if latErr != nil || lonErr != nil || location == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "latitude, longitude, and location name are required"))
		return
	}

	facilities, err := h.service.Nearby(c.Request.Context(), dto.NearbyQuery{
		Latitude:  lat,
		Longitude: lon,
		Location:  location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, facilities, "")
}
