package device

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/smart-clean/internal/models"
)

// Failures a position source can report.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// DefaultLocateTimeout bounds a position request.
const DefaultLocateTimeout = 10 * time.Second

// StaticLocation is a position source that always answers the same way.
// It stands in for a device fix supplied by a client.
type StaticLocation struct {
	Location *models.Location
	Err      error
	Delay    time.Duration
	Timeout  time.Duration
}

// Fixed returns a source reporting loc.
func Fixed(lat, lon float64) *StaticLocation {
	return &StaticLocation{Location: &models.Location{Lat: lat, Lon: lon}}
}

// Locate returns the configured position once Delay has elapsed.
func (s *StaticLocation) Locate(ctx context.Context) (models.Location, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return models.Location{}, ErrTimeout
			}
			return models.Location{}, ctx.Err()
		}
	}

	if s.Err != nil {
		return models.Location{}, s.Err
	}
	if s.Location == nil {
		return models.Location{}, ErrPositionUnavailable
	}
	return *s.Location, nil
}
