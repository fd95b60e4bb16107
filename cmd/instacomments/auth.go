package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"instacomments/pkg/auth"
	"instacomments/pkg/config"
	"instacomments/pkg/ui"
)

func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage saved Instagram sessions",
		Long: `Manage saved Instagram sessions.

A session is the sessionid, ds_user_id, csrftoken and mid cookies of a browser
that is already logged in. Saved sessions are kept in:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

SESSIONID, DS_USER_ID, CSRFTOKEN and MID in the environment always take
precedence over saved sessions. Never share your cookies!`,
	}

	authCmd.AddCommand(newAuthSaveCmd())
	authCmd.AddCommand(newAuthListCmd())
	authCmd.AddCommand(newAuthRemoveCmd())
	authCmd.AddCommand(newAuthGuideCmd())
	return authCmd
}

func newAuthSaveCmd() *cobra.Command {
	var fromEnv bool

	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Save session cookies",
		Long: `Save the cookies of a logged-in browser session.

You will be prompted for the sessionid, ds_user_id, csrftoken and mid cookie
values (hidden as you type) and an optional User-Agent. With --from-env the
values are taken from SESSIONID, DS_USER_ID, CSRFTOKEN and MID instead.`,
		Example: `  # Interactive
  instacomments auth save work

  # Copy the session from .env
  instacomments auth save work --from-env`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fatalError(fmt.Errorf("failed to initialize credential manager: %w", err))
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

			var name string
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			}
			if name == "" {
				name, err = p.readLine("Session name: ")
				if err != nil {
					return usageError(err)
				}
			}
			if name == "" {
				return usageError(errors.New("session name is required"))
			}

			var session *auth.Session
			if fromEnv {
				config.LoadDotEnv()
				session = auth.NewEnvironmentStore().Load()
				session.Name = name
			} else {
				session, err = p.readSession(name)
				if err != nil {
					return usageError(err)
				}
			}

			if err := manager.Store(session); err != nil {
				var missing *auth.MissingError
				if errors.As(err, &missing) {
					return usageError(err)
				}
				return fatalError(err)
			}

			ui.PrintSuccess("Session saved: " + name)
			fmt.Fprintf(cmd.OutOrStdout(), "\nUse it with:\n  instacomments --url <reel or post URL> --account %s\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromEnv, "from-env", false, "save the session found in the environment or .env")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Long:  `List saved sessions with masked cookie values, most recently saved first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fatalError(fmt.Errorf("failed to initialize credential manager: %w", err))
			}

			sessions, err := manager.List()
			if err != nil {
				return fatalError(fmt.Errorf("failed to list sessions: %w", err))
			}

			if len(sessions) == 0 {
				ui.PrintInfo("No saved sessions", "use 'instacomments auth save' to add one")
				return nil
			}

			out := cmd.OutOrStdout()
			ui.PrintHighlight("Saved Sessions")
			fmt.Fprintln(out)
			for i, s := range sessions {
				masked := auth.SanitizeSession(s)
				fmt.Fprintf(out, "%d. %s\n", i+1, masked.Name)
				fmt.Fprintf(out, "   sessionid:  %s\n", masked.SessionID)
				fmt.Fprintf(out, "   ds_user_id: %s\n", masked.DSUserID)
				fmt.Fprintf(out, "   csrftoken:  %s\n", masked.CSRFToken)
				fmt.Fprintf(out, "   mid:        %s\n", masked.MID)
				if masked.UserAgent != "" {
					fmt.Fprintf(out, "   user agent: %s\n", masked.UserAgent)
				}
				fmt.Fprintf(out, "   saved:      %s\n\n", masked.LastModified.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newAuthRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a saved session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fatalError(fmt.Errorf("failed to initialize credential manager: %w", err))
			}

			name := args[0]
			if err := manager.Delete(name); err != nil {
				if errors.Is(err, auth.ErrCredentialsNotFound) {
					return usageError(err)
				}
				return fatalError(err)
			}
			ui.PrintSuccess("Session removed: " + name)
			return nil
		},
	}
}

func newAuthGuideCmd() *cobra.Command {
	var quick bool

	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Show how to copy the session cookies from a browser",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if quick {
				auth.ShowQuickExtractGuide(cmd.OutOrStdout())
				return
			}
			auth.ShowCookieExtractionGuide(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&quick, "quick", false, "show the short version")
	return cmd
}

// prompter reads answers from stdin. Secrets are read without echo on a terminal.
type prompter struct {
	in   *bufio.Reader
	file *os.File
	out  io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.file = f
	}
	return p
}

func (p *prompter) readLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) readSecret(label string) (string, error) {
	if p.file == nil {
		return p.readLine(label)
	}

	fmt.Fprint(p.out, label)
	secret, err := term.ReadPassword(int(p.file.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// readSession prompts for all four cookies and an optional user agent
func (p *prompter) readSession(name string) (*auth.Session, error) {
	fmt.Fprintln(p.out, "Enter your cookie values (hidden as you type on a terminal):")

	session := &auth.Session{Name: name}
	fields := []struct {
		label string
		dst   *string
	}{
		{"sessionid: ", &session.SessionID},
		{"ds_user_id: ", &session.DSUserID},
		{"csrftoken: ", &session.CSRFToken},
		{"mid: ", &session.MID},
	}
	for _, f := range fields {
		value, err := p.readSecret(f.label)
		if err != nil {
			return nil, err
		}
		*f.dst = value
	}

	userAgent, err := p.readLine("User-Agent (press Enter for the default): ")
	if err != nil {
		return nil, err
	}
	session.UserAgent = userAgent

	return session, nil
}
