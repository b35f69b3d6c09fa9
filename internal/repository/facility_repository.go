package repository

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bloodconnect/bloodconnect-api/internal/models"
)

// FacilityRepository serves blood bank records from the bundled government
// dataset. The dataset is a single XML document whose root wraps one element
// per facility (ROW1, ROW2, ...), so decoding walks the children rather than
// relying on element names.
type FacilityRepository struct {
	path string

	once       sync.Once
	loadErr    error
	facilities []models.Facility
}

// NewFacilityRepository constructs a repository over the dataset at path.
// The file is parsed lazily on first use.
func NewFacilityRepository(path string) *FacilityRepository {
	return &FacilityRepository{path: path}
}

// FindByCity returns all facilities whose city matches, case-insensitively.
func (r *FacilityRepository) FindByCity(ctx context.Context, city string) ([]models.Facility, error) {
	r.once.Do(r.load)
	if r.loadErr != nil {
		return nil, r.loadErr
	}

	want := strings.ToLower(strings.TrimSpace(city))
	var matches []models.Facility
	for _, f := range r.facilities {
		if strings.ToLower(strings.TrimSpace(f.City)) == want {
			matches = append(matches, f)
		}
	}
	return matches, nil
}

func (r *FacilityRepository) load() {
	file, err := os.Open(r.path)
	if err != nil {
		r.loadErr = fmt.Errorf("open facility dataset: %w", err)
		return
	}
	defer file.Close()

	facilities, err := decodeFacilities(file)
	if err != nil {
		r.loadErr = fmt.Errorf("parse facility dataset: %w", err)
		return
	}
	r.facilities = facilities
}

func decodeFacilities(reader io.Reader) ([]models.Facility, error) {
	decoder := xml.NewDecoder(reader)

	var facilities []models.Facility
	depth := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := token.(type) {
		case xml.StartElement:
			depth++
			// Children of the root are facility rows.
			if depth == 2 {
				var f models.Facility
				if err := decoder.DecodeElement(&f, &el); err != nil {
					return nil, err
				}
				depth--
				if f.Name != "" {
					facilities = append(facilities, f)
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return facilities, nil
}
