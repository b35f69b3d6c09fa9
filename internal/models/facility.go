package models

// Facility is one blood bank or donation camp record, either from the
// bundled government dataset or from an external locator source.
type Facility struct {
	Name      string  `json:"name" xml:"NAME"`
	Address   string  `json:"address,omitempty" xml:"ADDRESS"`
	City      string  `json:"city,omitempty" xml:"CITY"`
	State     string  `json:"state,omitempty" xml:"STATE"`
	Pincode   string  `json:"pincode,omitempty" xml:"PINCODE"`
	Phone     string  `json:"phone,omitempty" xml:"CONTACT"`
	Email     string  `json:"email,omitempty" xml:"EMAIL"`
	Latitude  float64 `json:"lat,omitempty" xml:"-"`
	Longitude float64 `json:"lon,omitempty" xml:"-"`
	Source    string  `json:"source,omitempty" xml:"-"`
}
