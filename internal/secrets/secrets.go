// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value. Keys missing from the directory fall back to
// environment variables.
//
// Supported key files: groq-api-key, semantic-scholar-api-key, jina-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key file names.
const (
	GroqAPIKey            = "groq-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	JinaAPIKey            = "jina-api-key"
)

// envFallback maps key files to the environment variables consulted when the
// file is absent.
var envFallback = map[string]string{
	GroqAPIKey:            "GROQ_API_KEY",
	SemanticScholarAPIKey: "SEMANTIC_SCHOLAR_API_KEY",
	JinaAPIKey:            "JINA_API_KEY",
}

// Secrets holds loaded key values by file name.
type Secrets map[string]string

// Get returns the value of key from the secrets directory, or from its
// environment variable when the directory has none.
func (s Secrets) Get(key string) string {
	if v := s[key]; v != "" {
		return v
	}
	if env, ok := envFallback[key]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort. log may be nil.
func Load(dir string, log *zap.Logger) (Secrets, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
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
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
