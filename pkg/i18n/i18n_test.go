package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"CompanionGuard/pkg/crisis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiate(t *testing.T) {
	assert.Equal(t, []string{"es", "fr", "en"}, Negotiate("es", "fr;q=0.9, en;q=0.5"))
	assert.Equal(t, []string{"en-US", "en"}, Negotiate("", "en-US,en;q=0.8"))
	assert.Equal(t, []string{"de"}, Negotiate("de", "de"))
	assert.Empty(t, Negotiate("", ""))
	assert.Empty(t, Negotiate("!!", "###"))
}

func TestLoadCatalogs(t *testing.T) {
	dir := t.TempDir()
	es := `{"crisis.response.elevated": "Estoy aquí contigo. Llama o envía un mensaje al 988."}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "es.json"), []byte(es), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr.json"), []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := crisis.NewResponder()
	n, err := LoadCatalogs(r, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, r.RespondIn(crisis.SeverityElevated, "es"), "Estoy aquí")
	assert.Contains(t, r.RespondIn(crisis.SeverityImmediate, "es"), "911")

	n, err = LoadCatalogs(r, "", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
