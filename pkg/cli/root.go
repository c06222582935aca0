package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// output receives everything commands print
var output io.Writer = os.Stdout

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "baynext",
		Description: "baynext - administration for the baynext API",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("baynext", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["migrate"] = newMigrateCommand()
	root.Subcommands["hash-password"] = newHashPasswordCommand()
	root.Subcommands["create-user"] = newCreateUserCommand()
	root.Subcommands["token"] = newTokenCommand()
	root.Subcommands["create-project"] = newCreateProjectCommand()
	root.Subcommands["list-projects"] = newListProjectsCommand()
	root.Subcommands["create-key"] = newCreateKeyCommand()
	root.Subcommands["sweep-keys"] = newSweepKeysCommand()

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the subcommand named by args[0]
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Fprintf(output, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(output, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(output, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
