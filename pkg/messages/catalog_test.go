package messages

import (
	"github.com/magiconair/properties/assert"
	"os"
	"path/filepath"
	"testing"
)

func TestForStatus(t *testing.T) {
	catalog := NewDefaultCatalog()

	assert.Equal(t, catalog.ForStatus("login", 401), "Invalid email or password")
	assert.Equal(t, catalog.ForStatus("login", 418), "Error signing in")
	assert.Equal(t, catalog.ForStatus("plans.create", 405), "The server does not allow this operation. Check the server configuration.")
}

func TestMissingKeyFallsBackToKey(t *testing.T) {
	catalog := NewDefaultCatalog()

	assert.Equal(t, catalog.Get("no.such.key"), "no.such.key")
}

func TestFormat(t *testing.T) {
	catalog := NewDefaultCatalog()

	message := catalog.Format("login.account_mismatch", map[string]string{
		"expected": "a@fit.life",
		"received": "b@fit.life",
	})

	assert.Equal(t, message, "Authentication error: the server returned data of another user (expected: a@fit.life, received: b@fit.life)")
}

func TestLoadCatalogOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.properties")
	if err := os.WriteFile(path, []byte("login.401 = Credenciales incorrectas\n"), 0600); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalog(path)
	assert.Equal(t, err, nil)

	assert.Equal(t, catalog.ForStatus("login", 401), "Credenciales incorrectas")
	assert.Equal(t, catalog.ForStatus("login", 400), "Invalid login data")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.properties"))

	assert.Equal(t, err != nil, true)
}

func TestFormatDoesNotExpandSubstitutedValues(t *testing.T) {
	catalog := NewDefaultCatalog()

	message := catalog.Format("routine.description", map[string]string{
		"marker":    "{day}",
		"day":       "Monday",
		"exercises": "Squat {marker}",
	})

	assert.Equal(t, message, "ID:{day} - Routine scheduled for Monday - Exercises: Squat {marker}")
}

func TestFormatKeepsUnknownPlaceholders(t *testing.T) {
	catalog := NewDefaultCatalog()

	assert.Equal(t, catalog.Format("routine.name", map[string]string{"other": "x"}), "{day} routine")
	assert.Equal(t, catalog.Format("routine.name", nil), "{day} routine")
}
