package main

import (
	"os"
	"path/filepath"
	"testing"

	"skufetch/lib/extract"

	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		UrlTemplate: "https://shop.example.com/api/{id}",
		Fields: []FieldConfig{
			{Name: "title", Path: "$.title"},
		},
	}
}

func TestBuildExtractor(t *testing.T) {
	config := baseConfig()
	config.Fields = append(config.Fields,
		FieldConfig{Name: "on_sale", Expr: "title != nil"},
	)

	extractor, err := buildExtractor(config)
	require.NoError(t, err)
	require.IsType(t, extract.JSONExtractor{}, extractor)

	config.Body = "html"
	config.Fields = []FieldConfig{{Name: "title", Selector: "h1.title"}}
	extractor, err = buildExtractor(config)
	require.NoError(t, err)
	require.IsType(t, extract.HTMLExtractor{}, extractor)
}

func TestBuildExtractorRejectsBadConfig(t *testing.T) {
	config := baseConfig()
	config.UrlTemplate = "https://shop.example.com/api/products"
	_, err := buildExtractor(config)
	require.Error(t, err)

	config = baseConfig()
	config.Fields = nil
	_, err = buildExtractor(config)
	require.Error(t, err)

	config = baseConfig()
	config.Fields = []FieldConfig{{Name: "empty"}}
	_, err = buildExtractor(config)
	require.Error(t, err)

	config = baseConfig()
	config.Fields = []FieldConfig{{Name: "bad", Expr: "price <"}}
	_, err = buildExtractor(config)
	require.Error(t, err)

	config = baseConfig()
	config.Body = "xml"
	_, err = buildExtractor(config)
	require.Error(t, err)
}

func TestCollectIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skus.txt")
	err := os.WriteFile(path, []byte("IE3370\n\n# a comment\nIF0244\n"), 0600)
	require.NoError(t, err)

	config := baseConfig()
	config.Identifiers = []string{"ID8732"}
	config.IdentifiersFile = path

	identifiers, err := collectIdentifiers(config, []string{"GV6900"})
	require.NoError(t, err)
	require.Equal(t, []string{"ID8732", "GV6900", "IE3370", "IF0244"}, identifiers)
}

func TestCollectIdentifiersEmpty(t *testing.T) {
	_, err := collectIdentifiers(baseConfig(), nil)
	require.Error(t, err)
}
