package cli

import (
	"context"
	"strings"

	"resumelens/internal/backend"
	"resumelens/internal/common"
	"resumelens/internal/config"
	"resumelens/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumelens",
	Short: "An AI resume analyzer front end for the web and the terminal",
	Long: `ResumeLens talks to the resume analysis backend. It analyzes PDF resumes,
matches them against job descriptions, finds jobs and courses, and rewrites
resumes for a target role.

Run "resumelens serve" for the web interface, or sign in with
"resumelens login" to use the same features from the terminal.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// newBackendClient builds a client from the command's configuration
func newBackendClient(cmd *cobra.Command) *backend.Client {
	return backend.NewClient(getConfigFromContext(cmd.Context()).Backend, getLoggerFromContext(cmd.Context()))
}

// addOutputFlags registers --output and --format on cmd, which prints values like result
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig, result any) {
	cc.Result = result
	formats := strings.Join(common.SupportedFormats(nil, result), ", ")
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: "+formats)

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.SupportedFormats(cfg.App.SupportedFormats, cc.Result), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutputFormat applies the default format and checks that the command can write it
func resolveOutputFormat(cc *common.CommandConfig) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if cc.OutputFormat == "" {
			cc.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats, cc.Result)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}
