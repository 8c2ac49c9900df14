package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/smart-clean/internal/models"
)

const (
	Title      = "Smart Clean India — Garbage Report"
	closing    = "Please take necessary action. Reported via Smart Clean India app."
	timeLayout = "02 Jan 2006 15:04:05 MST"
)

// Draft is the working state of one report: the position, photo and notes
// gathered so far. It is owned by whoever is assembling the report.
type Draft struct {
	Location  *models.Location
	Image     []byte
	ImageType string
	Notes     string
	CreatedAt time.Time
}

// HasImage reports whether a photo has been attached.
func (d *Draft) HasImage() bool {
	return len(d.Image) > 0
}

// LocationProvider resolves the reporter's current position.
type LocationProvider interface {
	Locate(ctx context.Context) (models.Location, error)
}

// ImageCapture produces the photo attached to a report.
type ImageCapture interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Payload is what an exporter receives.
type Payload struct {
	ID        string
	Text      string
	Image     []byte
	ImageType string
	Location  *models.Location
	Nearest   *models.Match
}

// ReportExporter hands a finished report to one outbound channel.
type ReportExporter interface {
	Name() string
	Export(ctx context.Context, p Payload) error
}

// FormatLocation renders a coordinate the way reports show it.
func FormatLocation(loc *models.Location) string {
	if loc == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%.6f, %.6f", loc.Lat, loc.Lon)
}

// FormatNearest renders a nearest match, or Unknown.
func FormatNearest(m *models.Match) string {
	if m == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%s (%.2f km)", m.Facility.Name, m.DistanceKm)
}

// Format builds the plain-text report. tz picks the zone used for the
// timestamp; nil means UTC.
func Format(d Draft, nearest *models.Match, tz *time.Location) string {
	if tz == nil {
		tz = time.UTC
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	notes := strings.TrimSpace(d.Notes)
	if notes != "" {
		notes = "Notes: " + notes
	}

	lines := []string{
		Title,
		"Time: " + created.In(tz).Format(timeLayout),
		"Location: " + FormatLocation(d.Location),
		"Nearest Bin: " + FormatNearest(nearest),
		notes,
		"",
		closing,
	}

	kept := lines[:0]
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
