// Package grant decides whether the roles an archive requires may be
// exercised by the current caller.
//
// The trust pipeline consults a Granter after an archive has verified and
// before anything is extracted or executed. Roles are opaque strings; this
// package attaches no meaning to them beyond set membership.
package grant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrRoleDenied is returned when at least one required role is not granted.
var ErrRoleDenied = errors.New("tsar: role not granted")

// Granter approves or rejects a set of required roles.
//
// Grant returns nil when every role is approved. A rejection should wrap
// ErrRoleDenied.
type Granter interface {
	Grant(ctx context.Context, roles []string) error
}

// Func adapts a function to the Granter interface.
type Func func(ctx context.Context, roles []string) error

// Grant calls f.
func (f Func) Grant(ctx context.Context, roles []string) error {
	return f(ctx, roles)
}

type allowAll struct{}

func (allowAll) Grant(context.Context, []string) error { return nil }

// AllowAll returns a Granter that approves every role.
func AllowAll() Granter {
	return allowAll{}
}

// AllowList approves exactly the roles it was built with.
// The zero value approves only archives that require no roles.
type AllowList struct {
	allowed map[string]struct{}
}

// NewAllowList returns an AllowList approving roles.
func NewAllowList(roles ...string) *AllowList {
	a := &AllowList{allowed: make(map[string]struct{}, len(roles))}
	for _, r := range roles {
		a.allowed[r] = struct{}{}
	}
	return a
}

// Allowed returns the approved roles in sorted order.
func (a *AllowList) Allowed() []string {
	out := make([]string, 0, len(a.allowed))
	for r := range a.allowed {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Grant approves roles when every one is in the list. The error names every
// missing role.
func (a *AllowList) Grant(ctx context.Context, roles []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var missing []string
	for _, r := range roles {
		if _, ok := a.allowed[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrRoleDenied, strings.Join(missing, ", "))
	}
	return nil
}
