package dto

import "github.com/bloodconnect/bloodconnect-api/internal/models"

// CreateBloodRequest defines the payload for creating a blood request.
type CreateBloodRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=128"`
	Age       int    `json:"age" validate:"required,gte=1,lte=120"`
	BloodType string `json:"blood_type" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=5,max=20"`
}

// CreateBloodRequestResult reports the persisted request and how many
// compatible donors were notified. Zero notified donors is a valid outcome.
type CreateBloodRequestResult struct {
	Request        models.BloodRequest `json:"request"`
	NotifiedDonors int                 `json:"notified_donors"`
}

// ResolveRequest defines the in-app resolution payload. DonorID is required
// when Status is accepted.
type ResolveRequest struct {
	Status  models.RequestStatus `json:"status" validate:"required"`
	DonorID string               `json:"donor_id" validate:"omitempty,uuid"`
}

// AcceptedDonorResult reports a request's terminal status and, when
// accepted, the donor who accepted it.
type AcceptedDonorResult struct {
	Status models.RequestStatus `json:"status"`
	Donor  *models.DonorInfo    `json:"donor,omitempty"`
}
