package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Endpoint string `json:"endpoint"`
	Timeout  int    `json:"timeout"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		// comments are fine in json5
		endpoint: "https://shop.example.com",
		timeout: 30,
	}`), 0600)
	require.NoError(t, err)

	config, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Endpoint: "https://shop.example.com", Timeout: 30}, config)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(
		filepath.Join(dir, "config.json5"),
		[]byte(`{endpoint: "https://shop.example.com", timeout: 30}`),
		0600,
	)
	require.NoError(t, err)
	err = os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{timeout: 5}`),
		0600,
	)
	require.NoError(t, err)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com", config.Endpoint)
	require.Equal(t, 5, config.Timeout)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
