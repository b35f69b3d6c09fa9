package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/locator"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
)

type facilityDataset interface {
	FindByCity(ctx context.Context, city string) ([]models.Facility, error)
}

type facilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// FacilityService locates blood banks, from the bundled dataset by city and
// from external sources by coordinate.
type FacilityService struct {
	dataset   facilityDataset
	sources   []locator.Source
	cache     facilityCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacilityService constructs a FacilityService. cache may be nil, which
// disables caching of external lookups.
func NewFacilityService(dataset facilityDataset, sources []locator.Source, cache facilityCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *FacilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &FacilityService{
		dataset:   dataset,
		sources:   sources,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// FindByCity filters the bundled dataset by city, case-insensitively. An
// empty result is not an error.
func (s *FacilityService) FindByCity(ctx context.Context, req dto.CityLookupRequest) ([]models.Facility, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid city payload")
	}

	facilities, err := s.dataset.FindByCity(ctx, req.City)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read dataset")
	}
	if facilities == nil {
		facilities = []models.Facility{}
	}
	return facilities, nil
}

// Nearby queries every configured external source in parallel and returns
// the merged, de-duplicated results. A failed source contributes nothing
// and does not fail the lookup; results are cached per area.
func (s *FacilityService) Nearby(ctx context.Context, query dto.NearbyQuery) ([]models.Facility, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid nearby query")
	}

	key := nearbyCacheKey(query)
	if s.cache != nil {
		var cached []models.Facility
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	results := make([][]models.Facility, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src locator.Source) {
			defer wg.Done()
			facilities, err := src.Fetch(ctx, locator.Query{
				Latitude:  query.Latitude,
				Longitude: query.Longitude,
				Location:  query.Location,
			})
			if err != nil {
				s.logger.Warn("facility source failed", zap.String("source", src.Name()), zap.Error(err))
				return
			}
			results[i] = facilities
		}(i, src)
	}
	wg.Wait()

	merged := dedupeByName(results)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, merged, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache facility lookup", zap.String("key", key), zap.Error(err))
		}
	}
	return merged, nil
}

// dedupeByName keeps the first facility seen for each lowercase name,
// preserving source order.
func dedupeByName(results [][]models.Facility) []models.Facility {
	seen := make(map[string]struct{})
	merged := []models.Facility{}
	for _, batch := range results {
		for _, f := range batch {
			name := strings.ToLower(strings.TrimSpace(f.Name))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			merged = append(merged, f)
		}
	}
	return merged
}

func nearbyCacheKey(query dto.NearbyQuery) string {
	return fmt.Sprintf("facilities:%.4f:%.4f:%s", query.Latitude, query.Longitude, strings.ToLower(strings.TrimSpace(query.Location)))
}
