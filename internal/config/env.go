package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// EnvFiles are loaded from the site root in order when present. Variables
// already set in the process environment are never overridden.
var EnvFiles = []string{".env", ".env.local"}

func loadEnvFile(root string) error {
	for _, name := range EnvFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.ConfigError("failed to load environment file").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
	}
	return nil
}
