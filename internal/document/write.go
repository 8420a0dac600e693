package document

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// writeOutput writes content to path, creating parent directories as needed.
func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errors.FileSystemError("failed to create output directory").
			WithCause(err).
			WithContext("path", filepath.Dir(path)).
			Build()
	}
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return errors.FileSystemError("failed to write output").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}
