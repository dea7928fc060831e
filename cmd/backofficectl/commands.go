package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"freight-backoffice/internal/database"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/repository"
	"freight-backoffice/internal/service"
)

const commandTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()

	var databaseURL string

	root := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Operator tasks for the freight back-office API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL (env DATABASE_URL)")

	connect := func(ctx context.Context) (*database.DB, error) {
		if strings.TrimSpace(databaseURL) == "" {
			return nil, errors.New("--database-url or DATABASE_URL is required")
		}
		return database.New(ctx, databaseURL, 2, 1)
	}

	root.AddCommand(newMigrateCmd(connect), newCreateSudoCmd(connect), newHashPasswordCmd())
	return root
}

type connectFunc func(ctx context.Context) (*database.DB, error)

func newMigrateCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}

func newCreateSudoCmd(connect connectFunc) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-sudo",
		Short: "Create a sudo account",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := newSudoIdentity(username, email, password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := repository.NewIdentityRepository(db.Pool).Create(ctx, identity); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created sudo %s (%s)\n", identity.Username, identity.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSudoIdentity(username string, email string, password string) (model.Identity, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(username) < 3 {
		return model.Identity{}, errors.New("username must be at least 3 characters")
	}
	if !strings.Contains(email, "@") {
		return model.Identity{}, errors.New("email is invalid")
	}
	if len(password) < 8 {
		return model.Identity{}, errors.New("password must be at least 8 characters")
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return model.Identity{}, err
	}

	now := time.Now().UTC()
	return model.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         model.RoleSudo,
		Status:       model.StatusActive,
		Permissions:  model.FlatPermissions{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash; reads the password from stdin when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is empty")
			}

			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
