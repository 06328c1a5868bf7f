package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"resumelens/internal/backend"
	"resumelens/internal/common"
	"resumelens/internal/types"
	"resumelens/internal/validation"

	"github.com/spf13/cobra"
)

// newCredentialStore opens the default credentials file, refreshing through client
func newCredentialStore(cmd *cobra.Command, client *backend.Client) (*CredentialStore, error) {
	path, err := defaultCredentialsPath()
	if err != nil {
		return nil, err
	}
	return NewCredentialStore(path, client, getLoggerFromContext(cmd.Context())), nil
}

// promptLine reads one line from in after printing label, for values not given as flags
func promptLine(in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var loginFlags struct {
	email    string
	password string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store credentials for later commands",
	Long: `Sign in to the backend. The tokens are stored in
$HOME/.resumelens/credentials.json with mode 0600 and are refreshed
automatically when the access token is rejected.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginFlags.email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginFlags.password, "password", "", "Account password (prompted when omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	form := validation.LoginForm{Email: loginFlags.email, Password: loginFlags.password}
	var err error
	if form.Email == "" {
		if form.Email, err = promptLine(in, "Email: "); err != nil {
			return err
		}
	}
	if form.Password == "" {
		if form.Password, err = promptLine(in, "Password: "); err != nil {
			return err
		}
	}
	if fieldErrs := form.Validate(); fieldErrs != nil {
		return fieldErrs
	}

	client := newBackendClient(cmd)
	tokens, err := client.Login(cmd.Context(), form.Request())
	if err != nil {
		return err
	}
	return saveLogin(cmd, client, tokens, form.Email)
}

// saveLogin stores tokens and reports the signed-in user
func saveLogin(cmd *cobra.Command, client *backend.Client, tokens *types.AuthTokens, email string) error {
	store, err := newCredentialStore(cmd, client)
	if err != nil {
		return err
	}
	if err := store.Save(tokens); err != nil {
		return err
	}

	getLoggerFromContext(cmd.Context()).Info("Credentials saved", "file", store.Path())
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and delete stored credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLoggerFromContext(cmd.Context())
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}

		if token, err := store.AccessToken(); err == nil {
			// the local credentials go either way
			if err := client.Logout(cmd.Context(), token); err != nil {
				logger.Debug("Backend logout failed", "error", err.Error())
			}
		}
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var registerFlags struct {
	name     string
	email    string
	phone    string
	password string
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		form := validation.RegisterForm{
			Name:            registerFlags.name,
			Email:           registerFlags.email,
			Phone:           registerFlags.phone,
			Password:        registerFlags.password,
			ConfirmPassword: registerFlags.password,
			AgreeTerms:      true,
		}
		if form.Password == "" {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if form.Password, err = promptLine(in, "Password: "); err != nil {
				return err
			}
			if form.ConfirmPassword, err = promptLine(in, "Confirm password: "); err != nil {
				return err
			}
		}
		if fieldErrs := form.Validate(); fieldErrs != nil {
			return fieldErrs
		}

		client := newBackendClient(cmd)
		tokens, err := client.Register(cmd.Context(), form.Request())
		if err != nil {
			return err
		}
		return saveLogin(cmd, client, tokens, form.Email)
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerFlags.name, "name", "", "Full name")
	registerCmd.Flags().StringVar(&registerFlags.email, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerFlags.phone, "phone", "", "Phone number (optional)")
	registerCmd.Flags().StringVar(&registerFlags.password, "password", "", "Password (prompted when omitted)")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("email")
}

var (
	profileConfig common.CommandConfig
	profileFlags  struct {
		name  string
		phone string
	}
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Short:   "Show or update your profile",
	Long:    "Show the signed-in user's profile. Pass --name or --phone to update it.",
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&profileConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLoggerFromContext(cmd.Context())
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}

		update := cmd.Flags().Changed("name") || cmd.Flags().Changed("phone")
		var form validation.ProfileForm
		if update {
			form = validation.ProfileForm{Name: profileFlags.name, Phone: profileFlags.phone}
			if fieldErrs := form.Validate(); fieldErrs != nil {
				return fieldErrs
			}
		}

		return common.RunBackendCommand(cmd.Context(), logger, profileConfig, store,
			func(ctx context.Context, token string) (*types.User, error) {
				if update {
					return client.UpdateMe(ctx, token, form.Update())
				}
				return client.Me(ctx, token)
			})
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileFlags.name, "name", "", "New display name")
	profileCmd.Flags().StringVar(&profileFlags.phone, "phone", "", "New phone number")
	addOutputFlags(profileCmd, &profileConfig, types.User{})
}
