package export

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/smart-clean/internal/report"
)

var ErrNoExporters = errors.New("no exporters configured")

// LogExporter records only the report text as a single log entry, leaving
// the photo for the reporter to attach by hand. It is the last resort of a
// Fallback.
type LogExporter struct {
	Label string
}

func (e *LogExporter) Name() string {
	if e.Label == "" {
		return "log"
	}
	return e.Label
}

func (e *LogExporter) Export(ctx context.Context, p report.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"report_id": p.ID, "channel": e.Name()}).Info(p.Text)
	return nil
}

// Fallback tries each exporter in order until one succeeds.
type Fallback struct {
	Exporters []report.ReportExporter
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Export(ctx context.Context, p report.Payload) error {
	_, err := f.Deliver(ctx, p)
	return err
}

// Deliver returns the name of the exporter that took the report, or every
// failure joined together.
func (f *Fallback) Deliver(ctx context.Context, p report.Payload) (string, error) {
	if len(f.Exporters) == 0 {
		return "", ErrNoExporters
	}

	var errs []error
	for _, e := range f.Exporters {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := e.Export(ctx, p)
		if err == nil {
			return e.Name(), nil
		}
		log.WithError(err).WithField("channel", e.Name()).Warn("Export channel failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
	}
	return "", errors.Join(errs...)
}
