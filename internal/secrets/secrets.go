// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads oracle credentials from a directory of plain-text
// files. Each file in the directory represents one secret: the filename is
// the key name and the file contents (trimmed) are the value. Environment
// variables override files, so deployments can inject credentials without
// writing them to disk.
//
// Supported key files: oracle-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OracleAPIKey names the secret holding the synthesis oracle API key.
const OracleAPIKey = "oracle-api-key"

// EnvName maps a secret key to its environment override, e.g.
// "oracle-api-key" to "SYNTHESIS_ENGINE_ORACLE_API_KEY".
func EnvName(key string) string {
	return "SYNTHESIS_ENGINE_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Value resolves key against the environment first, then the loaded map.
// It returns the empty string when the secret is set nowhere.
func Value(loaded map[string]string, key string) string {
	if v := os.Getenv(EnvName(key)); v != "" {
		return v
	}
	return loaded[key]
}
