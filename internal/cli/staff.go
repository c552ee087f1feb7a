package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/campuslib/internal/entrypoint"
)

var errPasswordMismatch = errors.New("passwords do not match")

func newCreateStaffCommand(load ConfigLoader) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff account",
		Long: `Create a staff account. Staff accept and return loans, decide room
bookings, upload digital resources and change the lending policy.

The password is prompted for twice without echo. When stdin is not a
terminal the first two lines are read instead.`,
		Example: "  campuslib create-staff --username librarian --email librarian@campus.edu",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			password, err := readPassword(in, out, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword(in, out, "Repeat password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errPasswordMismatch
			}

			return withServices(load, func(svc *entrypoint.Services) error {
				user, err := svc.Auth.CreateStaff(cmd.Context(), username, email, password)
				if err != nil {
					return fmt.Errorf("create staff %q: %w", username, err)
				}
				fmt.Fprintf(out, "Created staff account %s (id %d)\n", user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "login name of the new account")
	cmd.Flags().StringVarP(&email, "email", "e", "", "contact address (optional)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword reads without echo from a terminal and reads a line otherwise.
func readPassword(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	if fd, ok := terminalFd(); ok {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// terminalFd reports whether the process stdin is an interactive terminal.
var terminalFd = func() (int, bool) {
	fd := int(os.Stdin.Fd())
	return fd, term.IsTerminal(fd)
}
