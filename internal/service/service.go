package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
)

// All is the token that selects every service under the base directory.
const All = "all"

// ErrNotFound is returned when an explicitly named service has no directory
// or no compose definition.
var ErrNotFound = errors.New("service not found")

// Service is a directory under the base directory holding a compose definition.
type Service struct {
	Name        string
	Dir         string
	ComposeFile string
}

// Names returns the names of services, in order.
func Names(services []Service) []string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Name
	}
	return names
}

// Resolve expands token into services under baseDir.
//
// "all" yields every immediate subdirectory that holds a compose file, in
// directory order, hidden ones included, skipping anything else. A comma list is validated up
// front: the first entry that is not a compose-bearing directory fails the
// whole call so nothing runs against a partial set.
func Resolve(token, baseDir string) ([]Service, error) {
	token = strings.TrimSpace(token)
	if token == All {
		return resolveAll(baseDir)
	}

	var services []Service
	seen := make(map[string]bool)
	for _, name := range strings.Split(token, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		svc, err := lookup(baseDir, name)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("%w: no service named in %q", ErrNotFound, token)
	}
	return services, nil
}

func resolveAll(baseDir string) ([]Service, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", baseDir, err)
	}

	var services []Service
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, e.Name())
		file, ok := composeFile(dir)
		if !ok {
			continue
		}
		services = append(services, Service{Name: e.Name(), Dir: dir, ComposeFile: file})
	}
	return services, nil
}

func lookup(baseDir, name string) (Service, error) {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return Service{}, fmt.Errorf("%w: invalid service name %q", ErrNotFound, name)
	}
	dir := filepath.Join(baseDir, name)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return Service{}, fmt.Errorf("%w: directory not found: %s", ErrNotFound, name)
	}
	file, ok := composeFile(dir)
	if !ok {
		return Service{}, fmt.Errorf("%w: no compose file in %s", ErrNotFound, name)
	}
	return Service{Name: name, Dir: dir, ComposeFile: file}, nil
}

// composeFile returns the first canonical compose file present in dir.
func composeFile(dir string) (string, bool) {
	for _, name := range cli.DefaultFileNames {
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// Describe loads the service's compose project and returns the names of the
// compose services it defines, sorted.
func Describe(ctx context.Context, svc Service) ([]string, error) {
	data, err := os.ReadFile(svc.ComposeFile)
	if err != nil {
		return nil, fmt.Errorf("reading compose file: %w", err)
	}
	details := types.ConfigDetails{
		WorkingDir:  svc.Dir,
		ConfigFiles: []types.ConfigFile{{Filename: svc.ComposeFile, Content: data}},
		Environment: types.Mapping{},
	}
	project, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		o.SetProjectName(projectName(svc.Name), true)
	})
	if err != nil {
		return nil, fmt.Errorf("parse compose file for %s: %w", svc.Name, err)
	}

	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// projectName normalizes a directory name the way compose derives default
// project names: lowercase, only [a-z0-9_-], starting with a letter or digit.
func projectName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum || (b.Len() > 0 && (r == '_' || r == '-')) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
