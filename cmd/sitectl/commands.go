package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/and161185/maru-site/internal/config"
	"github.com/and161185/maru-site/internal/service"
	"github.com/and161185/maru-site/internal/token"
)

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:          "sitectl",
		Short:        "Maintenance commands for the site",
		SilenceUsage: true,
	}
	root.SetIn(e.in)
	root.SetOut(e.out)
	root.SetErr(e.out)
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newMigrateCmd(e),
		newReactivateCmd(e),
		newCreateUserCmd(e),
		newHealthCmd(e),
	)
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(cmd.Flags())
			if err != nil {
				return err
			}
			v, err := e.migrate(cmd.Context(), cfg.Database.DSN, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		},
	}
}

// authService builds an AuthService over the configured user store. The
// token manager is never asked to issue tokens here.
func (e *env) authService(cmd *cobra.Command) (*service.AuthServiceImpl, func(), error) {
	cfg, err := config.Read(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	users, closeFn, err := e.openUsers(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	auth := service.NewAuthService(users, token.NewManager([]byte(cfg.JWT.Secret), cfg.JWT.TTL), e.log, service.AuthOptions{})
	return auth, closeFn, nil
}

func newReactivateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate <username>",
		Short: "Re-enable an account disabled by failed logins",
		Long: `Clears the failed login counter and re-enables the account.

Examples:
  sitectl reactivate admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, closeFn, err := e.authService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := auth.Reactivate(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("reactivate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s reactivated\n", args[0])
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("password required (--password or stdin)")
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}

func newCreateUserCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user <username> <email>",
		Short: "Create an admin account",
		Long: `Creates an active admin account. The password is taken from
--password or, when omitted, from the first line of stdin.

Examples:
  echo 's3cret' | sitectl create-user admin admin@example.com`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			auth, closeFn, err := e.authService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := auth.Register(cmd.Context(), args[0], args[1], password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().String("password", "", "account password (read from stdin when empty)")
	return cmd
}

func newHealthCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, _ := cmd.Flags().GetString("target")
			if target == "" {
				cfg, err := config.Read(cmd.Flags())
				if err != nil {
					return err
				}
				target = cfg.GRPC.Addr
			}
			if target == "" {
				return errors.New("no target: set --target or grpc.addr")
			}
			conn, err := e.dial(target)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return errors.New("not serving")
			}
			return nil
		},
	}
	cmd.Flags().String("target", "", "gRPC address (defaults to grpc.addr)")
	return cmd
}
