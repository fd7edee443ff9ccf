package transport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/denportal/wagate/internal/models"
)

// CredentialStore manages the persisted credential state the provider needs
// to resume a session without a fresh QR scan. The format of the directory
// contents is owned by the provider; this service only creates, checks and
// removes the per-tenant directory.
type CredentialStore interface {
	Exists(tenantID string) bool
	Dir(tenantID string) (string, error)
	Purge(tenantID string) error
}

const credentialDirPrefix = "auth_info_"

type fileCredentialStore struct {
	root string
}

func NewFileCredentialStore(root string) CredentialStore {
	return &fileCredentialStore{root: root}
}

func (s *fileCredentialStore) Dir(tenantID string) (string, error) {
	if !models.ValidTenantID(tenantID) {
		return "", fmt.Errorf("invalid tenant id %q", tenantID)
	}
	return filepath.Join(s.root, credentialDirPrefix+tenantID), nil
}

func (s *fileCredentialStore) Exists(tenantID string) bool {
	dir, err := s.Dir(tenantID)
	if err != nil {
		return false
	}

	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func (s *fileCredentialStore) Purge(tenantID string) error {
	dir, err := s.Dir(tenantID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
