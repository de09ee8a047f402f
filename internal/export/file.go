package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// fileExporter implements Exporter by writing reports below a local directory.
type fileExporter struct {
	dir    string
	logger zerolog.Logger
}

// NewFileExporter creates an exporter writing into dir.
func NewFileExporter(dir string, logger zerolog.Logger) Exporter {
	return &fileExporter{
		dir:    dir,
		logger: logger.With().Str("component", "file-exporter").Logger(),
	}
}

func (e *fileExporter) Export(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, filepath.Clean("/"+name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.logger.Error().Err(err).Str("file", path).Msg("failed to write report")
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	e.logger.Info().Str("file", path).Int("bytes", len(data)).Msg("report written")
	return path, nil
}
