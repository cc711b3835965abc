// Package configutil reads json5 configuration files with optional local
// overrides.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig loads a json5 configuration file and merges local overrides
// on top of it. For "config.json5" the merged files are, later winning:
//
//  1. config.json5
//  2. config.local.json5
//
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var merged T

	found, err := readInto(name, &merged)
	if err != nil {
		return merged, err
	}

	localName := localVariant(name)
	var overrides T
	foundLocal, err := readInto(localName, &overrides)
	if err != nil {
		return merged, err
	}
	if foundLocal {
		if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
			return merged, err
		}
		slog.Info("merged local config overrides", "file", localName)
	}

	if !found && !foundLocal {
		return merged, os.ErrNotExist
	}
	return merged, nil
}

// ReadRecursively walks from the working directory up to the filesystem
// root looking for a configuration file with the given name.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return zero, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, os.ErrNotExist
		}
		dir = parent
	}
}

func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json5.Unmarshal(contents, out); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}

func localVariant(name string) string {
	dir, base := filepath.Dir(name), filepath.Base(name)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return filepath.Join(dir, fmt.Sprintf("%s.local.%s", base[:i], base[i+1:]))
	}
	return filepath.Join(dir, base+".local")
}
