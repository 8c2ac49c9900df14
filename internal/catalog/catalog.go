package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukydev/smart-clean/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyCatalog      = errors.New("catalog has no usable facilities")
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// DefaultSheet is the worksheet read from spreadsheet catalogs.
const DefaultSheet = "Bins"

// Default returns the reference bins used when no catalog file is configured.
func Default() []models.Facility {
	return []models.Facility{
		{Name: "Bin - MG Road", Location: models.Location{Lat: 17.3850, Lon: 78.4867}},
		{Name: "Bin - Jubilee Hills", Location: models.Location{Lat: 17.4325, Lon: 78.4044}},
		{Name: "Bin - Banjara Hills", Location: models.Location{Lat: 17.4190, Lon: 78.4280}},
		{Name: "Bin - Necklace Road", Location: models.Location{Lat: 17.4120, Lon: 78.4730}},
		{Name: "Bin - Public Park", Location: models.Location{Lat: 17.3950, Lon: 78.4790}},
	}
}

// Load reads a catalog from path, choosing the decoder by extension.
// An empty path yields Default.
func Load(path string) ([]models.Facility, error) {
	if path == "" {
		return Default(), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".xlsx":
		return LoadXLSX(path, DefaultSheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

type fileEntry struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type file struct {
	Bins []fileEntry `yaml:"bins"`
}

// LoadYAML reads a catalog of the form
//
//	bins:
//	  - name: Bin - MG Road
//	    lat: 17.3850
//	    lon: 78.4867
func LoadYAML(path string) ([]models.Facility, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes catalog YAML already in memory.
func ParseYAML(data []byte) ([]models.Facility, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	facilities := make([]models.Facility, 0, len(f.Bins))
	for i, b := range f.Bins {
		fac := models.Facility{
			Name:     strings.TrimSpace(b.Name),
			Location: models.Location{Lat: b.Lat, Lon: b.Lon},
		}
		if err := validate(fac); err != nil {
			return nil, fmt.Errorf("bin %d: %w", i+1, err)
		}
		facilities = append(facilities, fac)
	}
	if len(facilities) == 0 {
		return nil, ErrEmptyCatalog
	}
	return facilities, nil
}

func validate(f models.Facility) error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if !f.Location.Valid() {
		return fmt.Errorf("invalid coordinate %v, %v", f.Location.Lat, f.Location.Lon)
	}
	return nil
}

// Describe renders a facility the way the bins list shows it.
func Describe(f models.Facility) string {
	return fmt.Sprintf("%s — %.5f, %.5f", f.Name, f.Location.Lat, f.Location.Lon)
}
