package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/baynext/baynext/pkg/auth"
)

// input is read when a password is not given as a flag
var input io.Reader = os.Stdin

func newHashPasswordCommand() *Command {
	cmd := &Command{
		Name:        "hash-password",
		Description: "Print the bcrypt hash of a password",
		Flags:       flag.NewFlagSet("hash-password", flag.ContinueOnError),
		Run:         runHashPassword,
	}

	cmd.Flags.String("password", "", "Password to hash (read from stdin when empty)")
	cmd.Flags.Int("cost", auth.DefaultBcryptCost, "bcrypt cost")

	return cmd
}

func runHashPassword(args []string) error {
	cmd := newHashPasswordCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	password, err := passwordFlag(cmd.Flags)
	if err != nil {
		return err
	}
	cost := cmd.Flags.Lookup("cost").Value.(flag.Getter).Get().(int)

	hash, err := auth.NewPasswordHasher(cost).Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(output, hash)
	return nil
}

// passwordFlag returns -password, or the first line of input when it is unset
func passwordFlag(flags *flag.FlagSet) (string, error) {
	if password := flags.Lookup("password").Value.String(); password != "" {
		return password, nil
	}

	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
