package recipients

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		path := writeFile(t, `
recipients:
  - name: Verification Desk
    email: desk@example.com
    default: true
  - name: Acme Ops
    email: ops@acme.example.com
    client: Acme Corp
`)
		dir, err := Load(path)
		require.NoError(t, err)

		assert.Len(t, dir.All(), 2)
		assert.Equal(t, "desk@example.com", dir.DefaultAddress())
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		path := writeFile(t, `
recipients:
  - name: Broken
    email: not-an-address
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestForClient(t *testing.T) {
	path := writeFile(t, `
recipients:
  - name: Verification Desk
    email: desk@example.com
  - name: Acme Ops
    email: ops@acme.example.com
    client: Acme Corp
  - name: Globex Ops
    email: ops@globex.example.com
    client: Globex
`)
	dir, err := Load(path)
	require.NoError(t, err)

	entries := dir.ForClient("acme corp")
	require.Len(t, entries, 2)
	assert.Equal(t, "desk@example.com", entries[0].Email)
	assert.Equal(t, "ops@acme.example.com", entries[1].Email)

	t.Run("empty directory has no default", func(t *testing.T) {
		assert.Empty(t, Empty().DefaultAddress())
		assert.Empty(t, Empty().All())
	})
}
