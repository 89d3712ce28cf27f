package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/message"
)

// prompt asks for missing values on the terminal. Fields whose value is
// already set are skipped.
func prompt(fields ...*promptField) error {
	var inputs []huh.Field
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		in := huh.NewInput().Title(f.title).Value(f.value)
		if f.secret {
			in = in.EchoMode(huh.EchoModePassword)
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("aborted")
		}
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

type promptField struct {
	title  string
	value  *string
	secret bool
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt(
				&promptField{title: "Email", value: &email},
				&promptField{title: "Password", value: &password, secret: true},
			); err != nil {
				return err
			}

			cred, err := rt.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := rt.creds.Set(*cred); err != nil {
				return err
			}
			rt.logger.Info("signed in", zap.String("owner", cred.Owner()))

			name := cred.Name
			if name == "" {
				name = cred.Email
			}
			cmd.Println(rt.catalog.T(message.SignedIn, map[string]any{"Name": name}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt(
				&promptField{title: "Name", value: &name},
				&promptField{title: "Email", value: &email},
				&promptField{title: "Password", value: &password, secret: true},
			); err != nil {
				return err
			}

			if _, err := rt.client.Register(cmd.Context(), name, email, password); err != nil {
				return err
			}
			cmd.Println(rt.catalog.T(message.Registered, nil))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session and its cached tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, ok := rt.creds.Get()
			if err := rt.creds.Clear(); err != nil {
				return err
			}
			if ok {
				if cache := rt.openCache(); cache != nil {
					defer cache.Close()
					if err := cache.ClearSnapshot(cmd.Context(), cred.Owner()); err != nil {
						rt.logger.Warn("clearing task snapshot", zap.Error(err))
					}
				}
			}
			cmd.Println(rt.catalog.T(message.SignedOut, nil))
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, ok := rt.creds.Get()
			if !ok {
				cmd.Println("Not signed in.")
				return nil
			}
			var b strings.Builder
			b.WriteString(rt.catalog.T(message.StateSignedInAs, map[string]any{"Owner": cred.Owner()}))
			if cred.Name != "" && cred.Name != cred.Owner() {
				b.WriteString(" (" + cred.Name + ")")
			}
			cmd.Println(b.String())
			cmd.Println("Service: " + rt.cfg.API.BaseURL)
			return nil
		},
	}
}
