// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is a node in the netmon-ctl command tree. A node either has
// Subcommands or a Run function.
type Command struct {
	Name    string
	Summary string

	// Usage replaces the generated usage line.
	Usage string

	// Flags builds the flag set for a leaf. Nil means no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	Run func(args []string) error

	parent *Command
}

// Execute walks args down the tree and runs the selected leaf. Help
// output goes to help.
func (c *Command) Execute(args []string, help io.Writer) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(help)
		return nil
	}
	if len(c.Subcommands) > 0 {
		return c.dispatch(args, help)
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			return fmt.Errorf("%s: %w (see '%s --help')", c.path(), err, c.path())
		}
		args = flagSet.Args()
	}
	if c.Run == nil {
		return fmt.Errorf("%s: nothing to run", c.path())
	}
	return c.Run(args)
}

func (c *Command) dispatch(args []string, help io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		c.PrintHelp(help)
		return fmt.Errorf("%s: subcommand required", c.path())
	}
	name := args[0]
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			sub.parent = c
			return sub.Execute(args[1:], help)
		}
	}
	if suggestion := closestCommand(name, c.Subcommands); suggestion != "" {
		return fmt.Errorf("%s: unknown command %q, did you mean %q?", c.path(), name, suggestion)
	}
	return fmt.Errorf("%s: unknown command %q (see '%s --help')", c.path(), name, c.path())
}

// PrintHelp writes the summary, usage line, subcommands and flags.
func (c *Command) PrintHelp(w io.Writer) {
	if c.Summary != "" {
		fmt.Fprintln(w, c.Summary)
		fmt.Fprintln(w)
	}
	usage := c.Usage
	if usage == "" {
		usage = c.path()
		if len(c.Subcommands) > 0 {
			usage += " <command>"
		}
		if c.Flags != nil {
			usage += " [flags]"
		}
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)

	if len(c.Subcommands) > 0 {
		fmt.Fprintln(w, "\nCommands:")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}
	if c.Flags != nil {
		fmt.Fprintln(w, "\nFlags:")
		flagSet := c.Flags()
		flagSet.SetOutput(w)
		flagSet.PrintDefaults()
	}
}

func (c *Command) path() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.path() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}

// closestCommand returns the sibling name within edit distance 3 of
// name, or "".
func closestCommand(name string, commands []*Command) string {
	best, bestDistance := "", 4
	for _, command := range commands {
		if distance := editDistance(name, command.Name); distance < bestDistance {
			best, bestDistance = command.Name, distance
		}
	}
	return best
}

// editDistance is the Levenshtein distance over bytes.
func editDistance(a, b string) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diagonal := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			substitution := diagonal
			if a[i-1] != b[j-1] {
				substitution++
			}
			diagonal = row[j]
			row[j] = min(row[j]+1, row[j-1]+1, substitution)
		}
	}
	return row[len(b)]
}
