package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/daemon"
	"github.com/nita-portal/nita/internal/db/controller/role"
	"github.com/nita-portal/nita/internal/db/controller/user"
)

const minPasswordLen = 8

var errPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLen)

func init() { //nolint: gochecknoinits
	userCmd.PersistentFlags().StringVar(&password, "password", "", "Password, read from stdin when empty")
	userCreateCmd.Flags().BoolVar(&makeAdmin, "admin", false, "Grant the admin role")
	userCreateCmd.Flags().StringVar(&fullName, "name", "", "Display name")
	userCreateCmd.Flags().StringVar(&email, "email", "", "Email address")

	userCmd.AddCommand(userCreateCmd, userPasswdCmd)
	rootCmd.AddCommand(userCmd)
}

var (
	password  string
	makeAdmin bool
	fullName  string
	email     string

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	userCreateCmd = &cobra.Command{
		Use:   "create <username>",
		Short: "Create a local account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, secret, err := prepareUserCmd(cmd)
			if err != nil {
				return err
			}

			var roleIDs []uint64

			if makeAdmin {
				r, errRole := role.Ensure(db, "admin")
				if errRole != nil {
					return errRole
				}

				roleIDs = append(roleIDs, uint64(r.ID))
			}

			u, err := user.CreateLocal(db, args[0], fullName, email, secret, roleIDs...)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Username, u.ID)

			return err
		},
	}

	userPasswdCmd = &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set the password of a local account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, secret, err := prepareUserCmd(cmd)
			if err != nil {
				return err
			}

			u, err := user.FindLocal(db, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if err = user.SetPassword(db, u.ID, secret); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "password of %s updated\n", u.Username)

			return err
		},
	}
)

func prepareUserCmd(cmd *cobra.Command) (*gorm.DB, string, error) {
	secret, err := readPassword(cmd.InOrStdin(), password)
	if err != nil {
		return nil, "", err
	}

	daemon.ApplyPasswordParams(&cfg)

	db, err := daemon.OpenDB(&cfg)
	if err != nil {
		return nil, "", err
	}

	return db, secret, nil
}

// readPassword returns flag, or the first line of r when flag is empty.
func readPassword(r io.Reader, flag string) (string, error) {
	secret := flag

	if secret == "" {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		secret = strings.TrimRight(line, "\r\n")
	}

	if len(secret) < minPasswordLen {
		return "", errPasswordTooShort
	}

	return secret, nil
}
