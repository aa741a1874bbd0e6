package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("sandbox", "sandbox"))
	assert.True(t, Allowed(" lab , Sandbox ", "sandbox"))
	assert.False(t, Allowed("lab,archive", "sandbox"))
	assert.False(t, Allowed("", "sandbox"))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TESTUTIL_A=from-file\nTESTUTIL_B=\"quoted\"\n"), 0o600))

	t.Setenv("TESTUTIL_A", "from-env")
	t.Setenv("TESTUTIL_B", "")
	require.NoError(t, os.Unsetenv("TESTUTIL_B"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("TESTUTIL_A"))
	assert.Equal(t, "quoted", os.Getenv("TESTUTIL_B"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestFindModuleRoot(t *testing.T) {
	root := FindModuleRoot("fallback")
	assert.FileExists(t, filepath.Join(root, "go.mod"))

	t.Chdir(t.TempDir())
	assert.Equal(t, "fallback", FindModuleRoot("fallback"))
}
