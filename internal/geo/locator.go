package geo

import (
	"errors"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/ukydev/smart-clean/internal/models"
)

// ErrNoFacilities is returned when a nearest search runs against an empty catalog.
var ErrNoFacilities = errors.New("no facilities configured")

// FindNearest scans the catalog for the facility closest to query.
//
// A nil query means the position is not known yet; the result is then
// (nil, nil) and no distances are computed. Ties keep the earliest
// catalog entry.
func FindNearest(catalog []models.Facility, query *models.Location) (*models.Match, error) {
	if query == nil {
		return nil, nil
	}
	if len(catalog) == 0 {
		return nil, ErrNoFacilities
	}

	nearestIdx := -1
	minDist := math.Inf(1)
	for i, f := range catalog {
		d := Distance(query.Lat, query.Lon, f.Location.Lat, f.Location.Lon)
		if d < minDist {
			minDist = d
			nearestIdx = i
		}
	}
	// every distance was NaN
	if nearestIdx < 0 {
		nearestIdx = 0
		minDist = math.NaN()
	}

	return &models.Match{Facility: catalog[nearestIdx], DistanceKm: minDist}, nil
}

// Locator answers proximity queries against a fixed catalog.
// It holds no mutable state and is safe for concurrent use.
type Locator struct {
	catalog []models.Facility
}

// NewLocator copies catalog so later changes by the caller are not observed.
func NewLocator(catalog []models.Facility) *Locator {
	c := make([]models.Facility, len(catalog))
	copy(c, catalog)
	return &Locator{catalog: c}
}

// Catalog returns a copy of the facilities in catalog order.
func (l *Locator) Catalog() []models.Facility {
	c := make([]models.Facility, len(l.catalog))
	copy(c, l.catalog)
	return c
}

// Nearest is FindNearest over the locator's catalog.
func (l *Locator) Nearest(query *models.Location) (*models.Match, error) {
	return FindNearest(l.catalog, query)
}

// Within returns every facility no further than radiusKm from query,
// closest first. Equal distances keep catalog order.
func (l *Locator) Within(query *models.Location, radiusKm float64) ([]models.Match, error) {
	if query == nil {
		return nil, nil
	}
	if len(l.catalog) == 0 {
		return nil, ErrNoFacilities
	}

	var matches []models.Match
	for _, f := range l.catalog {
		d := Distance(query.Lat, query.Lon, f.Location.Lat, f.Location.Lon)
		if d <= radiusKm {
			matches = append(matches, models.Match{Facility: f, DistanceKm: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	return matches, nil
}

// NearestBatch resolves many queries in parallel. Results line up with
// queries; a nil query yields a nil entry.
func NearestBatch(catalog []models.Facility, queries []*models.Location) ([]*models.Match, error) {
	if len(catalog) == 0 {
		return nil, ErrNoFacilities
	}

	total := len(queries)
	results := make([]*models.Match, total)
	if total == 0 {
		return results, nil
	}

	numCPU := runtime.NumCPU()
	if numCPU < 1 {
		numCPU = 1
	}
	chunkSize := (total + numCPU - 1) / numCPU

	var wg sync.WaitGroup
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for idx := s; idx < e; idx++ {
				// catalog is non-empty, so the only outcome is a match or nil
				results[idx], _ = FindNearest(catalog, queries[idx])
			}
		}(start, end)
	}
	wg.Wait()

	return results, nil
}
