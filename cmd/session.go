package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/auth"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/spf13/cobra"
)

var (
	loginDTO    auth.LoginDTO
	registerDTO auth.RegisterDTO
	whoamiCheck bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session for later commands",
	RunE: withDependencies(func(ctx context.Context, cmd *cobra.Command, deps *Dependencies) error {
		sess, err := deps.Auth.Login(ctx, loginDTO)
		if err != nil {
			return err
		}
		printIdentity(cmd, sess)
		return nil
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in with it",
	RunE: withDependencies(func(ctx context.Context, cmd *cobra.Command, deps *Dependencies) error {
		sess, err := deps.Auth.Register(ctx, registerDTO)
		if err != nil {
			return err
		}
		printIdentity(cmd, sess)
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: withDependencies(func(ctx context.Context, cmd *cobra.Command, deps *Dependencies) error {
		if err := deps.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Выход выполнен")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: withDependencies(func(ctx context.Context, cmd *cobra.Command, deps *Dependencies) error {
		sess := deps.Auth.Current()
		if sess == nil {
			return internal.ErrNoSession
		}
		if whoamiCheck {
			valid, err := deps.Auth.Validate(ctx)
			if err != nil {
				return err
			}
			if !valid {
				return internal.ErrUnauthorized
			}
		}
		printIdentity(cmd, sess)
		return nil
	}),
}

func init() {
	loginCmd.Flags().StringVarP(&loginDTO.Email, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginDTO.Password, "password", "p", "", "account password")

	registerCmd.Flags().StringVarP(&registerDTO.Email, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&registerDTO.Password, "password", "p", "", "account password")
	registerCmd.Flags().StringVar(&registerDTO.FullName, "full-name", "", "full name")
	registerCmd.Flags().StringVar(&registerDTO.Department, "department", "", "department")
	registerCmd.Flags().StringVar(&registerDTO.Position, "position", "", "position")

	whoamiCmd.Flags().BoolVar(&whoamiCheck, "check", false, "ask the identity endpoint whether the token is still accepted")
}

// withDependencies wires the client core for one command and prints its
// notifications as they happen.
func withDependencies(run func(ctx context.Context, cmd *cobra.Command, deps *Dependencies) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		deps, err := initializeDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()
		deps.EchoNotifications(cmd.ErrOrStderr())

		return run(ctx, cmd, deps)
	}
}

func printIdentity(cmd *cobra.Command, sess *session.Session) {
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintf(w, "ID\t%d\n", sess.Identity.ID)
	fmt.Fprintf(w, "Email\t%s\n", sess.Identity.Email)
	fmt.Fprintf(w, "ФИО\t%s\n", sess.Identity.FullName)
	fmt.Fprintf(w, "Роль\t%s\n", sess.Identity.Role)
	if sess.Identity.Department != "" {
		fmt.Fprintf(w, "Подразделение\t%s\n", sess.Identity.Department)
	}
	if sess.Identity.Position != "" {
		fmt.Fprintf(w, "Должность\t%s\n", sess.Identity.Position)
	}
	_ = w.Flush()
}
