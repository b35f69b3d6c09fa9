package models

import "time"

// BloodTypes enumerates the eight ABO/Rh categories accepted by the API.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IsValidBloodType reports whether the given value is one of the eight
// ABO/Rh categories.
func IsValidBloodType(bloodType string) bool {
	for _, bt := range BloodTypes {
		if bt == bloodType {
			return true
		}
	}
	return false
}

// Donor represents a person registered as willing to donate.
// Email is unique: at most one donor record per email.
type Donor struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Age       int       `db:"age" json:"age"`
	BloodType string    `db:"blood_type" json:"blood_type"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Public returns the donor fields exposed to other users.
func (d *Donor) Public() DonorInfo {
	return DonorInfo{
		ID:        d.ID,
		Name:      d.Name,
		Age:       d.Age,
		BloodType: d.BloodType,
		Email:     d.Email,
		Phone:     d.Phone,
	}
}

// DonorInfo is the public projection of a donor.
type DonorInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	BloodType string `json:"blood_type"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}
