package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

const maxCodeAttempts = 3

var (
	loginEmailFlag string
	loginCodeFlag  string
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an emailed verification code",
		Long: `Sign in to Poser. A 6-digit code is sent to your email address and the
session is stored in ~/.poser/session.json.`,
		Example: `  poser login
  poser login --email you@example.com --code 123456`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := GetApp()
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), app, loginEmailFlag, loginCodeFlag)
		},
	}

	cmd.Flags().StringVarP(&loginEmailFlag, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&loginCodeFlag, "code", "c", "", "Verification code (prompted when empty)")

	return cmd
}

// runLogin walks the email -> code flow. Empty arguments are prompted for.
func runLogin(ctx context.Context, app *App, email, code string) error {
	var loginErr error
	v := application.NewVerifier(app.API, application.ModeLogin, func(email string, tok *ports.TokenResponse) {
		loginErr = app.Session.Login(email, tok)
	})

	if email == "" {
		email = prompt("Email: ")
	}
	v.SetEmail(email)
	if err := v.RequestCode(ctx); err != nil {
		return userError(v.State().Error, err)
	}
	fmt.Printf("A verification code was sent to %s\n", v.State().Email)

	for attempt := 1; ; attempt++ {
		entered := code
		if entered == "" {
			entered = prompt("Code (r = resend): ")
		}
		if strings.EqualFold(entered, "r") {
			if err := v.Resend(ctx); err != nil {
				fmt.Println("✗", v.State().Error)
			} else {
				fmt.Println(v.State().ResendMessage)
			}
			attempt--
			continue
		}

		v.SetCode(entered)
		err := v.VerifyCode(ctx)
		if err == nil {
			break
		}
		if code != "" || attempt >= maxCodeAttempts || errors.Is(err, domain.ErrRequestInFlight) {
			return userError(v.State().Error, err)
		}
		msg := v.State().Error
		if msg == "" {
			msg = err.Error()
		}
		fmt.Println("✗", msg)
	}

	if loginErr != nil {
		return loginErr
	}
	fmt.Printf("✓ Signed in as %s\n", app.Session.Email())
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := GetApp()
			if err != nil {
				return err
			}
			return runLogout(app)
		},
	}
}

func runLogout(app *App) error {
	if !app.Session.IsLoggedIn() {
		fmt.Println("Not signed in")
		return nil
	}
	email := app.Session.Email()
	if err := app.Session.Logout(); err != nil {
		return err
	}
	fmt.Printf("Signed out %s\n", email)
	return nil
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := GetApp()
			if err != nil {
				return err
			}
			if !app.Session.IsLoggedIn() {
				fmt.Println("Not signed in")
				return nil
			}
			fmt.Printf("%s (since %s)\n", app.Session.Email(), app.Session.LoginAt().Local().Format("Jan 2, 2006 15:04"))
			fmt.Printf("API: %s\n", app.API.BaseURL())
			return nil
		},
	}
}

// NewConfirmCmd creates the confirm command
func NewConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <token>",
		Short: "Confirm your email with the token from the confirmation link",
		Long: `Confirm your email address. Analyses waiting for confirmation start
processing once the token is accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := GetApp()
			if err != nil {
				return err
			}
			if err := app.AnalysisSvc.Confirm(cmd.Context(), args[0]); err != nil {
				return errors.New(domain.UserMessage(err, "Email confirmation failed. Please try again."))
			}
			fmt.Println("✓ Email confirmed. Your analysis will start shortly.")
			return nil
		},
	}
}
