package mods

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/mhcho1994/rumoca/common"
)

// tomlProject mirrors the on-disk shape of a rumoca.toml project file. The
// project concept it describes is deliberately small: a MODELICAPATH
// supplement and a default root class, not a dependency graph or
// build-profile matrix.
type tomlProject struct {
	Project *tomlProjectBody `toml:"project"`
}

type tomlProjectBody struct {
	Name        string   `toml:"name"`
	RootClass   string   `toml:"root-class,omitempty"`
	SearchPaths []string `toml:"search-paths,omitempty"`
}

// Config is the resolved project configuration for a translation request.
type Config struct {
	Name        string
	RootClass   string
	SearchPaths []string
}

// LoadConfig reads dir/rumoca.toml if present. A missing project file is not
// an error: the zero Config (no extra search roots, no default root class)
// is returned, matching a bare single-file invocation.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, common.ProjectFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	tp := &tomlProject{}
	if err := toml.NewDecoder(f).Decode(tp); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}

	if tp.Project == nil {
		return &Config{}, nil
	}

	cfg := &Config{
		Name:      tp.Project.Name,
		RootClass: tp.Project.RootClass,
	}

	for _, sp := range tp.Project.SearchPaths {
		if !filepath.IsAbs(sp) {
			sp = filepath.Join(dir, sp)
		}
		cfg.SearchPaths = append(cfg.SearchPaths, sp)
	}

	return cfg, nil
}
