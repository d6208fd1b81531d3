package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	language "github.com/hanpama/fieldmerge/internal/language"
)

// Discovery lists the SDL sources that make up one schema.
type Discovery interface {
	ListSources(ctx context.Context) ([]*language.Source, error)
}

// FileSystemDiscovery implements Discovery for a directory tree of .graphql files
type FileSystemDiscovery struct {
	rootDir string
	paths   []string
}

// NewFileSystemDiscovery walks rootDir and records every .graphql file beneath it
func NewFileSystemDiscovery(ctx context.Context, rootDir string) (*FileSystemDiscovery, error) {
	discovery := &FileSystemDiscovery{rootDir: rootDir}

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".graphql" {
			return nil
		}
		discovery.paths = append(discovery.paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root directory %q: %w", rootDir, err)
	}
	if len(discovery.paths) == 0 {
		return nil, fmt.Errorf("no .graphql files found under %q", rootDir)
	}
	sort.Strings(discovery.paths)
	return discovery, nil
}

// ListSources reads every discovered file. Source names are paths relative to the root.
func (d *FileSystemDiscovery) ListSources(ctx context.Context) ([]*language.Source, error) {
	sources := make([]*language.Source, 0, len(d.paths))
	for _, path := range d.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %q: %w", path, err)
		}
		name, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return nil, fmt.Errorf("failed to get relative path for %q: %w", path, err)
		}
		sources = append(sources, &language.Source{Name: filepath.ToSlash(name), Input: string(content)})
	}
	return sources, nil
}

// InMemorySource is one named SDL document held by InMemoryDiscovery.
type InMemorySource struct {
	Name    string
	Content string
}

// InMemoryDiscovery is a Discovery over SDL strings, mostly for tests
type InMemoryDiscovery struct {
	sources []InMemorySource
}

func NewInMemoryDiscovery(sources []InMemorySource) *InMemoryDiscovery {
	return &InMemoryDiscovery{sources: sources}
}

// ListSources implements Discovery interface
func (d *InMemoryDiscovery) ListSources(ctx context.Context) ([]*language.Source, error) {
	sources := make([]*language.Source, 0, len(d.sources))
	for _, src := range d.sources {
		sources = append(sources, &language.Source{Name: src.Name + ".graphql", Input: src.Content})
	}
	return sources, nil
}

// Build parses every source of disc as one document and builds the schema.
func Build(ctx context.Context, disc Discovery) (*Schema, error) {
	sources, err := disc.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := language.ParseSchemas(sources...)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// Load is a convenience function that discovers .graphql files under rootDir and builds the schema
func Load(rootDir string) (*Schema, error) {
	ctx := context.Background()
	discovery, err := NewFileSystemDiscovery(ctx, rootDir)
	if err != nil {
		return nil, err
	}
	return Build(ctx, discovery)
}
