package modelc

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Compile compiles an in-memory document. See ModelSet.AddValue.
func Compile(doc any, opts ...Options) (*Schema, error) {
	set := NewModelSet(opts...)
	if err := set.AddValue("<value>", doc); err != nil {
		return nil, fmt.Errorf("compile models: %w", err)
	}
	return set.Compile()
}

// Load reads one YAML or JSON document from r and compiles it.
func Load(r io.Reader, opts ...Options) (*Schema, error) {
	if r == nil {
		return nil, fmt.Errorf("load models: nil reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	set := NewModelSet(opts...)
	if err := set.AddBytes("<reader>", data); err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	schema, err := set.Compile()
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return schema, nil
}

// LoadFS compiles the documents at locations in fsys.
func LoadFS(fsys fs.FS, locations []string, opts ...Options) (*Schema, error) {
	set := NewModelSet(opts...)
	for _, location := range locations {
		if err := set.AddFS(fsys, location); err != nil {
			return nil, fmt.Errorf("load models: %w", err)
		}
	}
	schema, err := set.Compile()
	if err != nil {
		return nil, fmt.Errorf("load models %s: %w", locations, err)
	}
	return schema, nil
}

// LoadFile compiles the documents at the given file paths.
func LoadFile(paths []string, opts ...Options) (*Schema, error) {
	set := NewModelSet(opts...)
	for _, path := range paths {
		dir := filepath.Dir(path)
		base := filepath.Base(path)
		if err := set.AddFS(os.DirFS(dir), base); err != nil {
			return nil, fmt.Errorf("load models: %w", err)
		}
	}
	schema, err := set.Compile()
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return schema, nil
}
