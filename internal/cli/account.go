package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/session"
)

func (a *App) saveSession(res client.AuthResult, c *client.Client) error {
	s := session.FromAuth(res, c.BaseURL())
	if err := a.sessions().Save(s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	st := a.openLocal()
	st.SetUser(&res.User)
	return st.Save()
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := app.prompter()
			var err error
			if email == "" {
				if email, err = p.askRequired("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.secret("Password"); err != nil {
					return err
				}
			}
			c := app.anonClient()
			res, err := c.Login(cmd.Context(), auth.NormalizeEmail(email), password)
			if err != nil {
				return err
			}
			if err := app.saveSession(res, c); err != nil {
				return err
			}
			return app.emit(res.User, func() {
				app.printf("Signed in as %s <%s>\n", res.User.Name, res.User.Email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c, err := app.authedClient(); err == nil {
				// The server only clears its cookie; a failure here must not
				// keep the local session around.
				_ = c.Logout(cmd.Context())
			}
			if err := app.sessions().Clear(); err != nil {
				return err
			}
			app.printf("Signed out\n")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			u, err := c.Profile(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return app.emit(u, func() {
				app.printf("%s <%s>\n", u.Name, u.Email)
				if u.ProfilePicture != "" {
					app.printf("Picture: %s\n", u.ProfilePicture)
				}
				app.printf("ID: %s\n", u.ID)
			})
		},
	}
}

// askNewPassword asks for a password twice and checks it against the
// password policy before anything is sent.
func askNewPassword(p *prompter, label string) (string, error) {
	for {
		pw, err := p.secret(label)
		if err != nil {
			return "", err
		}
		if err := auth.ValidatePassword(pw); err != nil {
			fmt.Fprintf(p.out, "%v\n", err)
			continue
		}
		confirm, err := p.secret("Confirm password")
		if err != nil {
			return "", err
		}
		if confirm != pw {
			fmt.Fprintln(p.out, "passwords do not match")
			continue
		}
		return pw, nil
	}
}

func newRegisterCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account (name, email, then password)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := app.prompter()
			name, err := p.askRequired("Name")
			if err != nil {
				return err
			}
			var email string
			for {
				if email, err = p.askRequired("Email"); err != nil {
					return err
				}
				email = auth.NormalizeEmail(email)
				if err := auth.ValidateEmail(email); err != nil {
					fmt.Fprintf(p.out, "%v\n", err)
					continue
				}
				break
			}
			password, err := askNewPassword(p, "Password")
			if err != nil {
				return err
			}

			c := app.anonClient()
			res, err := c.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if err := app.saveSession(res, c); err != nil {
				return err
			}
			return app.emit(res.User, func() {
				app.printf("Welcome, %s! Your DEFAULT list is ready.\n", res.User.Name)
			})
		},
	}
}

func newResetPasswordCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password with an emailed code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p := app.prompter()
			c := app.anonClient()

			email, err := p.askRequired("Email")
			if err != nil {
				return err
			}
			email = auth.NormalizeEmail(email)
			if err := c.ForgotPassword(ctx, email); err != nil {
				return err
			}
			fmt.Fprintln(p.out, "If that email is registered, a 6-digit code is on its way.")

			code, err := p.askRequired("Code")
			if err != nil {
				return err
			}
			tok, err := c.VerifyResetCode(ctx, email, code)
			if err != nil {
				return err
			}

			password, err := askNewPassword(p, "New password")
			if err != nil {
				return err
			}
			if err := c.ResetPassword(ctx, tok.Token, password); err != nil {
				return err
			}
			app.printf("Password updated. Sign in with \"tasksync login\".\n")
			return nil
		},
	}
}

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your profile",
	}

	var name, email string
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Change your name or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			var patch client.ProfilePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("email") {
				normalized := auth.NormalizeEmail(email)
				patch.Email = &normalized
			}
			if patch.Name == nil && patch.Email == nil {
				return fmt.Errorf("nothing to change: pass --name or --email")
			}
			u, err := c.UpdateProfile(cmd.Context(), patch)
			if err != nil {
				return explain(err)
			}
			if err := app.refreshSessionUser(u); err != nil {
				return err
			}
			return app.emit(u, func() { app.printf("Profile updated: %s <%s>\n", u.Name, u.Email) })
		},
	}
	edit.Flags().StringVar(&name, "name", "", "New display name")
	edit.Flags().StringVar(&email, "email", "", "New email address")

	password := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			p := app.prompter()
			current, err := p.secret("Current password")
			if err != nil {
				return err
			}
			next, err := askNewPassword(p, "New password")
			if err != nil {
				return err
			}
			if err := c.ChangePassword(cmd.Context(), current, next); err != nil {
				return explain(err)
			}
			app.printf("Password changed\n")
			return nil
		},
	}

	picture := &cobra.Command{
		Use:   "picture URL",
		Short: "Set your profile picture URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			u, err := c.UpdateProfilePicture(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			if err := app.refreshSessionUser(u); err != nil {
				return err
			}
			return app.emit(u, func() { app.printf("Profile picture updated\n") })
		},
	}

	cmd.AddCommand(edit, password, picture)
	return cmd
}

// refreshSessionUser keeps the stored session in step with profile edits.
func (a *App) refreshSessionUser(u client.User) error {
	store := a.sessions()
	s, err := store.Load()
	if errors.Is(err, session.ErrNoSession) {
		// Signed in through TASKSYNC_TOKEN.
		return nil
	}
	if err != nil {
		return err
	}
	s.User = u
	return store.Save(s)
}
