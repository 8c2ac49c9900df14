package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/smart-clean/internal/geo"
	"github.com/ukydev/smart-clean/internal/models"
)

// Service assembles reports against a facility catalog.
type Service struct {
	locator *geo.Locator
	tz      *time.Location
	now     func() time.Time
}

// NewService creates a report service. tz may be nil for UTC.
func NewService(locator *geo.Locator, tz *time.Location) *Service {
	if tz == nil {
		tz = time.UTC
	}
	return &Service{locator: locator, tz: tz, now: time.Now}
}

// Locator exposes the catalog the service resolves against.
func (s *Service) Locator() *geo.Locator {
	return s.locator
}

// NewDraft starts an empty draft stamped with the current time.
func (s *Service) NewDraft() *Draft {
	return &Draft{CreatedAt: s.now()}
}

// Resolve asks provider for a position. Every failure, whatever its cause,
// leaves the position unknown.
func (s *Service) Resolve(ctx context.Context, provider LocationProvider) *models.Location {
	if provider == nil {
		return nil
	}
	loc, err := provider.Locate(ctx)
	if err != nil {
		log.WithError(err).Warn("Location unavailable")
		return nil
	}
	if !loc.Valid() {
		log.WithFields(log.Fields{"lat": loc.Lat, "lon": loc.Lon}).Warn("Location provider returned an invalid coordinate")
		return nil
	}
	return &loc
}

// Attach captures a photo into d.
func (s *Service) Attach(ctx context.Context, capture ImageCapture, d *Draft) error {
	img, err := capture.Capture(ctx)
	if err != nil {
		return fmt.Errorf("capture image: %w", err)
	}
	if len(img) == 0 {
		return errors.New("capture image: empty image")
	}
	d.Image = img
	d.ImageType = http.DetectContentType(img)
	return nil
}

// Prepare resolves the nearest bin for d and formats the report text.
// An unknown position is not an error; the report says Unknown.
func (s *Service) Prepare(ctx context.Context, d *Draft) (string, *models.Match, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}

	nearest, err := s.locator.Nearest(d.Location)
	if err != nil {
		return "", nil, err
	}
	return Format(*d, nearest, s.tz), nearest, nil
}
