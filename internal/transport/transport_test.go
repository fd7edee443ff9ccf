package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJID(t *testing.T) {
	require.Equal(t, "923001234567@s.whatsapp.net", NormalizeJID("923001234567"))
	require.Equal(t, "923001234567@s.whatsapp.net", NormalizeJID("923001234567@s.whatsapp.net"))
}

func TestStripJIDSuffix(t *testing.T) {
	require.Equal(t, "923001234567", StripJIDSuffix("923001234567@s.whatsapp.net"))
	require.Equal(t, "923001234567", StripJIDSuffix("923001234567"))
}

func TestCloseInfoPolicyHelpers(t *testing.T) {
	require.True(t, (&CloseInfo{Code: CodeLoggedOut}).LoggedOut())
	require.False(t, (&CloseInfo{Code: 500}).LoggedOut())

	require.True(t, (&CloseInfo{Code: CodeReplaced}).Superseded())
	require.True(t, (&CloseInfo{Type: CloseTypeConflict}).Superseded())
	require.True(t, (&CloseInfo{Type: CloseTypeReplaced}).Superseded())
	require.False(t, (&CloseInfo{Code: 500}).Superseded())

	var nilInfo *CloseInfo
	require.False(t, nilInfo.LoggedOut())
	require.False(t, nilInfo.Superseded())
}

func TestFileCredentialStore(t *testing.T) {
	root := t.TempDir()
	store := NewFileCredentialStore(root)

	require.False(t, store.Exists("school1"))

	dir, err := store.Dir("school1")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "auth_info_school1"), dir)

	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "creds.json"), []byte("{}"), 0o600))
	require.True(t, store.Exists("school1"))

	require.NoError(t, store.Purge("school1"))
	require.False(t, store.Exists("school1"))

	// purging again is a no-op
	require.NoError(t, store.Purge("school1"))
}

func TestFileCredentialStoreRejectsBadTenantID(t *testing.T) {
	store := NewFileCredentialStore(t.TempDir())

	_, err := store.Dir("../escape")
	require.Error(t, err)
	require.Error(t, store.Purge("../escape"))
	require.False(t, store.Exists("../escape"))
}
