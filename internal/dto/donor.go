package dto

// RegisterDonorRequest defines the payload for donor self-registration.
type RegisterDonorRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=128"`
	Age       int    `json:"age" validate:"required,gte=18,lte=65"`
	BloodType string `json:"blood_type" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=5,max=20"`
}

// UpdateProfileRequest defines the mutable donor profile fields.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=128"`
	Age   int    `json:"age" validate:"omitempty,gte=18,lte=65"`
	Phone string `json:"phone" validate:"omitempty,min=5,max=20"`
}

// Profile is what the profile endpoints return: a donor profile when one
// exists, otherwise the bare account identity.
type Profile struct {
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	Age       int    `json:"age,omitempty"`
	BloodType string `json:"blood_type,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	IsDonor   bool   `json:"is_donor"`
}
