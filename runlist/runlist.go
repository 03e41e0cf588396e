// Package runlist reads the role and package descriptors carried in a
// payload and orders the packages they name for execution.
//
// A payload may contain a roles directory with one descriptor per role and
// any number of package directories:
//
//	roles/<role>.yaml     dependencies and env overrides for a role
//	<pkg>/package.yaml    name, version, main, dependencies and env
//
// A role without a descriptor is a pure capability: it is granted or denied
// but contributes no packages.
package runlist

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"
)

const (
	// RolesDir is the payload directory holding role descriptors.
	RolesDir = "roles"

	// PackageFile is the descriptor file name inside a package directory.
	PackageFile = "package.yaml"

	// DefaultMain is the entry point used when a package does not name one.
	DefaultMain = "main.sh"

	// maxDescriptorSize bounds how much of a descriptor file is read.
	maxDescriptorSize = 1 << 20
)

// Package is a directory of code with a package.yaml descriptor.
type Package struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Main         string            `json:"main,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
}

// Role lists the packages a role runs and the env overrides it applies.
type Role struct {
	Name         string            `json:"-"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
}

// RunList is the set of role and package descriptors loaded from a tree.
type RunList struct {
	// Dir is the directory the run-list was loaded from.
	Dir string

	// Roles holds the roles that have descriptors, in request order.
	Roles []Role

	// Packages holds every package reachable from Roles, keyed by name.
	Packages map[string]*Package
}

// Load reads the descriptors for roles from dir, following package
// dependencies transitively. Roles without a descriptor are skipped.
func Load(dir string, roles []string) (*RunList, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	rl := &RunList{Dir: dir, Packages: make(map[string]*Package)}
	seen := make(map[string]struct{}, len(roles))
	for _, name := range roles {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		role, ok, err := loadRole(root, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rl.Roles = append(rl.Roles, role)
		for _, dep := range role.Dependencies {
			if err := rl.loadPackage(root, dep, "role "+name); err != nil {
				return nil, err
			}
		}
	}
	return rl, nil
}

// Package returns the loaded package called name.
func (rl *RunList) Package(name string) (*Package, bool) {
	p, ok := rl.Packages[name]
	return p, ok
}

func loadRole(root *os.Root, name string) (Role, bool, error) {
	// Roles that cannot name a file in the roles directory are capabilities.
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Role{}, false, nil
	}
	file := path.Join(RolesDir, name+".yaml")

	data, err := readDescriptor(root, file)
	if errors.Is(err, fs.ErrNotExist) {
		return Role{}, false, nil
	}
	if err != nil {
		return Role{}, false, err
	}

	var role Role
	if err := yaml.UnmarshalStrict(data, &role); err != nil {
		return Role{}, false, fmt.Errorf("%w: %s: %v", ErrRunList, file, err)
	}
	role.Name = name
	if err := validateNames(file, role.Dependencies); err != nil {
		return Role{}, false, err
	}
	role.Dependencies = dedupe(role.Dependencies)
	return role, true, nil
}

func (rl *RunList) loadPackage(root *os.Root, name, requiredBy string) error {
	if _, ok := rl.Packages[name]; ok {
		return nil
	}
	if err := validatePackageName(name); err != nil {
		return fmt.Errorf("%w (required by %s)", err, requiredBy)
	}
	file := path.Join(name, PackageFile)

	data, err := readDescriptor(root, file)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: package %q required by %s not found", ErrRunList, name, requiredBy)
	}
	if err != nil {
		return err
	}

	var pkg Package
	if err := yaml.UnmarshalStrict(data, &pkg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRunList, file, err)
	}
	if err := validatePackage(root, name, file, &pkg); err != nil {
		return err
	}
	rl.Packages[name] = &pkg

	for _, dep := range pkg.Dependencies {
		if err := rl.loadPackage(root, dep, "package "+name); err != nil {
			return err
		}
	}
	return nil
}

func validatePackage(root *os.Root, dirName, file string, pkg *Package) error {
	switch {
	case pkg.Name == "":
		return fmt.Errorf("%w: %s: name is missing", ErrRunList, file)
	case pkg.Name != dirName:
		return fmt.Errorf("%w: %s: name %q doesn't match its directory", ErrRunList, file, pkg.Name)
	case pkg.Version == "":
		return fmt.Errorf("%w: %s: version is missing", ErrRunList, file)
	}
	if pkg.Main == "" {
		pkg.Main = DefaultMain
	}
	mainPath := path.Clean(pkg.Main)
	if !fs.ValidPath(mainPath) || mainPath == "." {
		return fmt.Errorf("%w: %s: main %q is not a path inside the package", ErrRunList, file, pkg.Main)
	}
	pkg.Main = mainPath

	info, err := root.Stat(path.Join(dirName, mainPath))
	if err != nil {
		return fmt.Errorf("%w: %s: main %q doesn't exist", ErrRunList, file, pkg.Main)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s: main %q isn't a regular file", ErrRunList, file, pkg.Main)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s: main %q isn't executable", ErrRunList, file, pkg.Main)
	}
	if err := validateNames(file, pkg.Dependencies); err != nil {
		return err
	}
	pkg.Dependencies = dedupe(pkg.Dependencies)
	return nil
}

func validatePackageName(name string) error {
	if name == "" || name == RolesDir || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || !fs.ValidPath(name) {
		return fmt.Errorf("%w: invalid package name %q", ErrRunList, name)
	}
	return nil
}

func validateNames(file string, names []string) error {
	for _, n := range names {
		if err := validatePackageName(n); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

func readDescriptor(root *os.Root, file string) ([]byte, error) {
	f, err := root.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrRunList, file)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxDescriptorSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRunList, file, err)
	}
	if len(data) > maxDescriptorSize {
		return nil, fmt.Errorf("%w: %s is too large", ErrRunList, file)
	}
	return data, nil
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
