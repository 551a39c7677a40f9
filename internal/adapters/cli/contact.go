package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/domain"
)

var subjectFlag string

// NewContactCmd creates the contact command
func NewContactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact [message]",
		Short: "Send a message to Poser support",
		Long: `Send a message to Poser support. The message is read from the argument,
from stdin when the argument is "-", or prompted for when omitted.
Messages are limited to 1000 characters.`,
		Example: `  poser contact "The trim preview does not play"
  poser contact --subject "Billing" -
  poser contact`,
		Args: cobra.MaximumNArgs(1),
		RunE: runContact,
	}

	cmd.Flags().StringVarP(&subjectFlag, "subject", "s", "", "Subject (default: User Feedback)")

	return cmd
}

func runContact(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return runContactInteractive(cmd.Context(), app)
	}

	message := args[0]
	if message == "-" {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, 64*1024))
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		message = string(data)
	}
	return sendContact(cmd.Context(), app, subjectFlag, message)
}

// runContactInteractive prompts for a subject and a message body. The body
// ends at the first empty line.
func runContactInteractive(ctx context.Context, app *App) error {
	subject := subjectFlag
	if subject == "" {
		subject = prompt("Subject (enter for \"User Feedback\"): ")
	}

	fmt.Printf("Message (max %d characters, finish with an empty line):\n", domain.MaxContactMessageLength)
	var lines []string
	for {
		line := prompt("")
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	return sendContact(ctx, app, subject, strings.Join(lines, "\n"))
}

func sendContact(ctx context.Context, app *App, subject, message string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(message)); n > domain.MaxContactMessageLength {
		fmt.Printf("%d/%d characters\n", n, domain.MaxContactMessageLength)
	}

	msg, err := app.ContactSvc.Send(ctx, subject, message)
	if err != nil {
		app.Logger.Warn("contact message not sent", "error", err)
		return errors.New(application.ContactErrorMessage(err))
	}
	fmt.Printf("✓ Message sent (%s)\n", msg.Subject)
	return nil
}
