package config

import (
	"fmt"
	"os"

	"github.com/ukydev/smart-clean/internal/models"
	"gopkg.in/yaml.v3"
)

type staffFile struct {
	Staff []models.Staff `yaml:"staff"`
}

// LoadStaff reads the staff directory. An empty path gives no accounts.
func LoadStaff(path string) ([]models.Staff, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staff file: %w", err)
	}

	var f staffFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse staff file: %w", err)
	}

	seen := make(map[string]bool, len(f.Staff))
	for i, s := range f.Staff {
		if s.Username == "" || s.PasswordHash == "" {
			return nil, fmt.Errorf("staff entry %d: username and password_hash are required", i+1)
		}
		if !models.IsValidRole(s.Role) {
			return nil, fmt.Errorf("staff entry %d: invalid role %q", i+1, s.Role)
		}
		if seen[s.Username] {
			return nil, fmt.Errorf("staff entry %d: duplicate username %q", i+1, s.Username)
		}
		seen[s.Username] = true
	}
	return f.Staff, nil
}
