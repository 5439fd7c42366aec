// Package project locates the Go module a fabric command runs in and loads
// its optional fabric.yaml.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/go-drift/fabric/pkg/config"
)

// ConfigFile is the name of the per-project configuration file.
const ConfigFile = "fabric.yaml"

// Project describes the module a command operates on.
type Project struct {
	Root       string
	ModulePath string
	Name       string
	// ConfigPath is empty when the project has no fabric.yaml.
	ConfigPath string
	Config     *config.Config
}

// Resolve loads the project rooted at dir. A missing fabric.yaml selects the
// default configuration.
func Resolve(dir string) (*Project, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}
	p := &Project{
		Root:       dir,
		ModulePath: modulePath,
		Name:       defaultName(modulePath, dir),
		Config:     config.Default(),
	}

	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	p.ConfigPath, p.Config = path, cfg
	return p, nil
}

// FindRoot walks up from dir to the directory holding go.mod.
func FindRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

// Current resolves the project containing the working directory. Outside a
// module it returns a project with the default configuration and no root.
func Current() (*Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindRoot(wd)
	if err != nil {
		return &Project{Name: filepath.Base(wd), Config: config.Default()}, nil
	}
	return Resolve(root)
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if prefix, _, ok := module.SplitPathVersion(modulePath); ok {
		parts := strings.Split(prefix, "/")
		base = parts[len(parts)-1]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "fabric_app"
	}
	return base
}
