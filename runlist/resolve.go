package runlist

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
)

// Step is one package execution in a resolved plan.
type Step struct {
	// Role is the role through which the package was first reached.
	Role string

	// Package and Version identify the package.
	Package string
	Version string

	// Dir is the package directory; Main is the entry point inside it.
	Dir  string
	Main string

	// Env is the package env with role overrides applied.
	Env map[string]string
}

// Resolve orders the packages of every role so that each package follows
// its dependencies. Roles are visited in order and each package appears once
// across the whole plan. A dependency cycle is ErrCycle.
//
// A package's env is its declared env, with the reaching role's values
// replacing keys the package already declares. Role keys the package does
// not declare are ignored.
func (rl *RunList) Resolve() ([]Step, error) {
	r := resolver{
		rl:       rl,
		done:     make(map[string]bool),
		visiting: make(map[string]bool),
	}
	for i := range rl.Roles {
		role := &rl.Roles[i]
		for _, dep := range role.Dependencies {
			if err := r.visit(role, dep, nil); err != nil {
				return nil, err
			}
		}
	}
	return r.plan, nil
}

type resolver struct {
	rl       *RunList
	done     map[string]bool
	visiting map[string]bool
	plan     []Step
}

// visit appends name to the plan after its dependencies (depth-first
// post-order). trail holds the current dependency chain for cycle errors.
func (r *resolver) visit(role *Role, name string, trail []string) error {
	if r.done[name] {
		return nil
	}
	trail = append(trail, name)
	if r.visiting[name] {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(trail, " -> "))
	}
	pkg, ok := r.rl.Packages[name]
	if !ok {
		return fmt.Errorf("%w: package %q is not loaded", ErrRunList, name)
	}

	r.visiting[name] = true
	for _, dep := range pkg.Dependencies {
		if err := r.visit(role, dep, trail); err != nil {
			return err
		}
	}
	delete(r.visiting, name)
	r.done[name] = true

	r.plan = append(r.plan, Step{
		Role:    role.Name,
		Package: pkg.Name,
		Version: pkg.Version,
		Dir:     filepath.Join(r.rl.Dir, filepath.FromSlash(pkg.Name)),
		Main:    filepath.Join(r.rl.Dir, filepath.FromSlash(pkg.Name), filepath.FromSlash(pkg.Main)),
		Env:     mergeEnv(pkg.Env, role.Env),
	})
	return nil
}

func mergeEnv(pkgEnv, roleEnv map[string]string) map[string]string {
	env := maps.Clone(pkgEnv)
	if env == nil {
		env = make(map[string]string)
	}
	for k, v := range roleEnv {
		if _, ok := env[k]; ok {
			env[k] = v
		}
	}
	return env
}

// Plan loads the run-list for roles from dir and resolves it. An empty plan
// is ErrNothingToRun.
func Plan(dir string, roles []string) ([]Step, error) {
	rl, err := Load(dir, roles)
	if err != nil {
		return nil, err
	}
	steps, err := rl.Resolve()
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, ErrNothingToRun
	}
	return steps, nil
}

// Validate loads and resolves the run-list for roles without requiring it to
// be non-empty. It is used before signing to reject broken descriptors.
func Validate(dir string, roles []string) error {
	rl, err := Load(dir, roles)
	if err != nil {
		return err
	}
	_, err = rl.Resolve()
	return err
}
