// Package file holds the flat-file persistence pieces: the tenant id
// registry and the rule configuration loader.
package file

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/denportal/wagate/internal/models"
)

// TenantRegistry is the newline-delimited tenant id file. Lines starting
// with '#' are comments; ids are restricted to alphanumerics, underscore
// and hyphen; duplicates are dropped preserving first occurrence.
type TenantRegistry struct {
	path string
	mu   sync.Mutex
}

func NewTenantRegistry(path string) *TenantRegistry {
	return &TenantRegistry{path: path}
}

// List returns the registered tenant ids in file order. A missing file is
// an empty registry, not an error.
func (r *TenantRegistry) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Ensure registers id, appending it to the file unless already present.
func (r *TenantRegistry) Ensure(id string) error {
	if !models.ValidTenantID(id) {
		return fmt.Errorf("invalid tenant id %q: only letters, numbers, _ and - allowed", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}
	for _, existing := range current {
		if existing == id {
			return nil
		}
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open tenant registry: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("failed to append tenant id: %w", err)
	}
	return nil
}

func (r *TenantRegistry) read() ([]string, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, line := range strings.Split(string(raw), "\n") {
		id := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if !models.ValidTenantID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
