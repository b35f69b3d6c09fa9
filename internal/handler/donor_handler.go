package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	"github.com/bloodconnect/bloodconnect-api/internal/service"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
	"github.com/bloodconnect/bloodconnect-api/pkg/response"
)

type donorService interface {
	Register(ctx context.Context, req dto.RegisterDonorRequest) (*models.Donor, error)
	List(ctx context.Context) ([]models.DonorInfo, error)
	Export(ctx context.Context, format service.ExportFormat) ([]byte, string, error)
	GetProfile(ctx context.Context, email string) (*dto.Profile, error)
	UpdateProfile(ctx context.Context, email string, req dto.UpdateProfileRequest) (*models.Donor, error)
}

// DonorHandler exposes donor directory and profile endpoints.
type DonorHandler struct {
	service donorService
}

// NewDonorHandler builds a new handler.
func NewDonorHandler(service donorService) *DonorHandler {
	return &DonorHandler{service: service}
}

// Register godoc
// @Summary Register as a blood donor
// @Tags Donors
// @Accept json
// @Produce json
// @Param payload body dto.RegisterDonorRequest true "Donor payload"
// @Success 201 {object} response.Envelope
// @Router /donors [post]
func (h *DonorHandler) Register(c *gin.Context) {
	var req dto.RegisterDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid donor payload"))
		return
	}
	donor, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, donor.Public(), "successfully registered as a donor")
}

// List godoc
// @Summary List registered donors
// @Tags Donors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /donors [get]
func (h *DonorHandler) List(c *gin.Context) {
	donors, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donors, "")
}

// Export godoc
// @Summary Download the donor roster
// @Tags Donors
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /donors/export [get]
func (h *DonorHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))
	payload, contentType, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("donors.%s", format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// GetProfile godoc
// @Summary Fetch the authenticated user's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *DonorHandler) GetProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.service.GetProfile(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, "")
}

// UpdateProfile godoc
// @Summary Update the authenticated user's donor profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /profile [put]
func (h *DonorHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	donor, err := h.service.UpdateProfile(c.Request.Context(), claims.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donor.Public(), "profile updated successfully")
}
