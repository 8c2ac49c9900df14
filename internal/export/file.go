package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/smart-clean/internal/report"
)

const lockFile = ".export.lock"

var ErrLockBusy = errors.New("export directory is locked")

// FileExporter is the download channel: it drops the report text and the
// photo into a directory shared with other processes.
type FileExporter struct {
	Dir       string
	LockRetry time.Duration
}

// NewFileExporter creates dir if needed.
func NewFileExporter(dir string) (*FileExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &FileExporter{Dir: dir, LockRetry: 50 * time.Millisecond}, nil
}

func (e *FileExporter) Name() string { return "download" }

// Export writes <id>.txt and, when a photo is attached, garbage_report_<id>.<ext>.
func (e *FileExporter) Export(ctx context.Context, p report.Payload) error {
	lock := flock.New(filepath.Join(e.Dir, lockFile))
	locked, err := lock.TryLockContext(ctx, e.LockRetry)
	if err != nil {
		return fmt.Errorf("lock export dir: %w", err)
	}
	if !locked {
		return ErrLockBusy
	}
	defer lock.Unlock()

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}

	textPath := filepath.Join(e.Dir, id+".txt")
	if err := writeFileAtomic(textPath, []byte(p.Text)); err != nil {
		return err
	}
	if len(p.Image) > 0 {
		imgPath := filepath.Join(e.Dir, ImageFilename(id, p.ImageType))
		if err := writeFileAtomic(imgPath, p.Image); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{"report_id": id, "dir": e.Dir, "image_bytes": len(p.Image)}).Debug("Report written to export dir")
	return nil
}

// ImageFilename names a downloaded photo after its report.
func ImageFilename(id, contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	}
	return "garbage_report_" + id + ext
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
