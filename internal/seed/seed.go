// Package seed loads directory records from YAML and replaces the contents
// of a store with them.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/campuslink/campuslink-server/internal/directory"
)

//go:embed campus.yaml
var campusYAML []byte

// File is the on-disk layout of a seed file
type File struct {
	Services []*directory.ServiceRecord `yaml:"services"`
}

// Campus returns the built-in campus records
func Campus() ([]*directory.ServiceRecord, error) {
	return Load(bytes.NewReader(campusYAML))
}

// Load decodes and validates a seed document. Unknown fields are rejected.
func Load(r io.Reader) ([]*directory.ServiceRecord, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("seed file has no services")
	}
	for i, rec := range f.Services {
		if err := directory.ValidateRecord(rec); err != nil {
			return nil, fmt.Errorf("service %d: %w", i, err)
		}
	}
	return f.Services, nil
}

// LoadFile reads a seed document from path
func LoadFile(path string) ([]*directory.ServiceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Run replaces everything in seeder with records
func Run(ctx context.Context, seeder directory.Seeder, records []*directory.ServiceRecord) (int, error) {
	n, err := seeder.Seed(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to seed directory: %w", err)
	}
	slog.InfoContext(ctx, "Directory seeded", "services", n)
	return n, nil
}
