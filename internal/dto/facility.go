package dto

// CityLookupRequest filters the bundled dataset by city.
type CityLookupRequest struct {
	City string `json:"city" validate:"required,min=2,max=128"`
}

// NearbyQuery locates facilities around a coordinate. Presence of the
// coordinate params is enforced at the handler; lat=0 and lon=0 are
// legitimate values here.
type NearbyQuery struct {
	Latitude  float64 `form:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `form:"lon" validate:"gte=-180,lte=180"`
	Location  string  `form:"location" validate:"required,min=2,max=128"`
}
