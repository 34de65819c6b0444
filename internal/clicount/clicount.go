// Package clicount adds a repeatable counting flag to urfave/cli/v2, which
// only grew built-in Count support on its v3 branch. -v -v and
// --verbose --verbose behave the same way: each occurrence on the command
// line increments the destination by one. Combined short forms such as
// -vvv are not split into separate occurrences by this package.
package clicount

import (
	"flag"
	"fmt"
	"strconv"
)

// CountFlag is a cli.Flag whose value is the number of times it appeared
// on the command line. Dest must be set before the flag is registered;
// the caller reads *Dest after cli.App.Run returns.
type CountFlag struct {
	Name    string
	Aliases []string
	Usage   string
	Hidden  bool
	Dest    *int
}

type countValue struct {
	dest *int
}

func (c *countValue) String() string {
	if c == nil || c.dest == nil {
		return "0"
	}
	return strconv.Itoa(*c.dest)
}

func (c *countValue) Set(string) error {
	*c.dest++
	return nil
}

// IsBoolFlag lets the stdlib flag package accept -v with no argument, so
// each bare -v or --verbose counts as one occurrence.
func (c *countValue) IsBoolFlag() bool { return true }

// Apply registers the flag with a stdlib flag.FlagSet, which is how
// urfave/cli v2 discovers a cli.Flag's names and wiring.
func (f *CountFlag) Apply(set *flag.FlagSet) error {
	if f.Dest == nil {
		f.Dest = new(int)
	}
	for _, name := range f.Names() {
		set.Var(&countValue{dest: f.Dest}, name, f.Usage)
	}
	return nil
}

// Names returns every name/alias this flag is registered under.
func (f *CountFlag) Names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

// IsSet reports whether the flag was seen at least once.
func (f *CountFlag) IsSet() bool { return f.Dest != nil && *f.Dest > 0 }

// String implements fmt.Stringer for cli's help-text rendering.
func (f *CountFlag) String() string {
	return fmt.Sprintf("-%s value\t%s", f.Name, f.Usage)
}
