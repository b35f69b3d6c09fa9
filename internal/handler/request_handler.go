package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	"github.com/bloodconnect/bloodconnect-api/internal/service"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
	"github.com/bloodconnect/bloodconnect-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, req dto.CreateBloodRequest) (*dto.CreateBloodRequestResult, error)
	ResolveViaLink(ctx context.Context, requestID, action, donorID string) (service.ResolutionOutcome, error)
	ResolveViaAPI(ctx context.Context, requestID string, req dto.ResolveRequest) (service.ResolutionOutcome, error)
	GetAcceptedDonor(ctx context.Context, requestID, requesterEmail string) (*dto.AcceptedDonorResult, error)
	ListPendingForDonor(ctx context.Context, donorEmail string) ([]models.BloodRequest, error)
	ListMine(ctx context.Context, requesterEmail string) ([]models.BloodRequest, error)
}

// RequestHandler exposes the blood request lifecycle endpoints.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler builds a new handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create godoc
// @Summary Create a blood request and notify compatible donors
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateBloodRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateBloodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "request created and donors notified"
	if result.NotifiedDonors == 0 {
		message = "request created, but no matching donors found"
	}
	response.Created(c, result, message)
}

// RespondViaLink godoc
// @Summary Resolve a request from an emailed link
// @Description Renders a human-readable confirmation page. A GET that
// @Description mutates state is a deliberate exception: the endpoint is
// @Description reached by clicking a mail link, and the pending-only
// @Description conditional update makes repeats harmless.
// @Tags Requests
// @Produce html
// @Param id path string true "Request ID"
// @Param action query string true "accept or reject"
// @Param donor query string false "Donor ID (required for accept)"
// @Success 200 {string} string "confirmation page"
// @Router /requests/{id}/respond [get]
func (h *RequestHandler) RespondViaLink(c *gin.Context) {
	outcome, err := h.service.ResolveViaLink(c.Request.Context(), c.Param("id"), c.Query("action"), c.Query("donor"))
	if err != nil {
		switch appErrors.FromError(err).Code {
		case appErrors.ErrValidation.Code:
			renderInvalidActionPage(c)
		case appErrors.ErrNotFound.Code:
			// An unknown donor id means the link itself is bad, not the
			// request; don't tell the donor the request is gone.
			if errors.Is(err, service.ErrUnknownDonor) {
				renderInvalidLinkPage(c)
			} else {
				renderNotFoundPage(c)
			}
		default:
			renderServerErrorPage(c)
		}
		return
	}

	switch outcome {
	case service.OutcomeAccepted:
		renderAcceptedPage(c)
	case service.OutcomeRejected:
		renderRejectedPage(c)
	default:
		renderAlreadyResolvedPage(c)
	}
}

// Resolve godoc
// @Summary Resolve a request from the app
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ResolveRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [put]
func (h *RequestHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolution payload"))
		return
	}
	outcome, err := h.service.ResolveViaAPI(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch outcome {
	case service.OutcomeAccepted:
		response.JSON(c, http.StatusOK, nil, "request has been accepted")
	case service.OutcomeRejected:
		response.JSON(c, http.StatusOK, nil, "request has been rejected")
	default:
		response.Error(c, appErrors.ErrAlreadyResolved)
	}
}

// AcceptedDonor godoc
// @Summary Fetch the resolution outcome and matched donor
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Param email query string true "Requester email"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/donor [get]
func (h *RequestHandler) AcceptedDonor(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "requester email is required"))
		return
	}
	result, err := h.service.GetAcceptedDonor(c.Request.Context(), c.Param("id"), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, "")
}

// PendingForDonor godoc
// @Summary List open requests matching a donor's blood type
// @Tags Requests
// @Produce json
// @Param email query string true "Donor email"
// @Success 200 {object} response.Envelope
// @Router /requests/pending [get]
func (h *RequestHandler) PendingForDonor(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "donor email is required"))
		return
	}
	requests, err := h.service.ListPendingForDonor(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, "")
}

// Mine godoc
// @Summary List requests created by an email
// @Tags Requests
// @Produce json
// @Param email query string true "Requester email"
// @Success 200 {object} response.Envelope
// @Router /requests/mine [get]
func (h *RequestHandler) Mine(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email is required"))
		return
	}
	requests, err := h.service.ListMine(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, "")
}
