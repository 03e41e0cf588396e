// Package enum provides a pflag value restricted to a fixed set of options.
package enum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// Flag is a string flag that only accepts one of its options.
// The first option is the default.
type Flag struct {
	options []string
	value   string
}

var _ pflag.Value = (*Flag)(nil)

// New returns a Flag accepting options. It panics if options is empty.
func New(options ...string) *Flag {
	if len(options) == 0 {
		panic("enum: at least one option is required")
	}
	return &Flag{options: options, value: options[0]}
}

// String returns the current value.
func (f *Flag) String() string {
	return f.value
}

// Set accepts value if it is one of the options.
func (f *Flag) Set(value string) error {
	if !slices.Contains(f.options, value) {
		return fmt.Errorf("must be one of %s", strings.Join(f.options, ", "))
	}
	f.value = value
	return nil
}

// Type returns the option list for help output.
func (f *Flag) Type() string {
	return strings.Join(f.options, "|")
}

// Var defines an enum flag on flags. The first option is the default.
func Var(flags *pflag.FlagSet, name string, options []string, usage string) {
	VarP(flags, name, "", options, usage)
}

// VarP is like Var but accepts a shorthand letter.
func VarP(flags *pflag.FlagSet, name, shorthand string, options []string, usage string) {
	flags.VarP(New(options...), name, shorthand, usage)
}

// Get returns the value of the enum flag name.
func Get(flags *pflag.FlagSet, name string) (string, error) {
	f := flags.Lookup(name)
	if f == nil {
		return "", fmt.Errorf("flag %q not defined", name)
	}
	v, ok := f.Value.(*Flag)
	if !ok {
		return "", fmt.Errorf("flag %q is not an enum flag", name)
	}
	return v.String(), nil
}
