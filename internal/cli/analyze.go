package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"resumelens/internal/common"
	"resumelens/internal/errors"
	"resumelens/internal/types"
	"resumelens/internal/validation"

	"github.com/spf13/cobra"
)

const defaultReportFile = "resume_report.pdf"

var analyzeConfig common.CommandConfig

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume.pdf]",
	Short: "Analyze a PDF resume",
	Long: `Upload a PDF resume for parsing and scoring. The result includes the
extracted personal information, detected and recommended skills, the resume
and ATS scores, improvement tips and course recommendations.

The file is checked locally first: it must be a readable PDF no larger
than app.maxFileSize.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&analyzeConfig),
	RunE:    runAnalyze,
}

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig, types.AnalysisResult{})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	filename := args[0]
	data, err := common.NewFileProcessor(logger).ReadBinaryFile(filename, cfg.App.MaxFileSize)
	if err != nil {
		return err
	}
	pages, err := validation.CheckPDFUpload(filepath.Base(filename), "", data)
	if err != nil {
		return err
	}

	logger.Info("Starting resume analysis",
		"file", filename,
		"bytes", len(data),
		"pages", pages,
		"output_format", analyzeConfig.OutputFormat)

	client := newBackendClient(cmd)
	store, err := newCredentialStore(cmd, client)
	if err != nil {
		return err
	}

	err = common.RunBackendCommand(cmd.Context(), logger, analyzeConfig, store,
		func(ctx context.Context, token string) (*types.AnalysisResult, error) {
			return client.AnalyzeResume(ctx, token, filepath.Base(filename), bytes.NewReader(data))
		})
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}

var (
	historyConfig common.CommandConfig
	historyFlags  struct {
		page  int
		limit int
	}
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "List past analyses, newest first",
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&historyConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}
		return common.RunBackendCommand(cmd.Context(), getLoggerFromContext(cmd.Context()), historyConfig, store,
			func(ctx context.Context, token string) (*types.AnalysisHistory, error) {
				return client.History(ctx, token, historyFlags.page, historyFlags.limit)
			})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.page, "page", 1, "Page number")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 10, "Analyses per page (max 50)")
	addOutputFlags(historyCmd, &historyConfig, types.AnalysisHistory{})
}

var showConfig common.CommandConfig

var showCmd = &cobra.Command{
	Use:     "show [analysis-id]",
	Short:   "Show a stored analysis",
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&showConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}
		return common.RunBackendCommand(cmd.Context(), getLoggerFromContext(cmd.Context()), showConfig, store,
			func(ctx context.Context, token string) (*types.AnalysisResult, error) {
				return client.Analysis(ctx, token, args[0])
			})
	},
}

func init() {
	addOutputFlags(showCmd, &showConfig, types.AnalysisResult{})
}

var deleteCmd = &cobra.Command{
	Use:   "delete [analysis-id]",
	Short: "Delete a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLoggerFromContext(cmd.Context())
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}

		_, err = common.CallWithRefresh(cmd.Context(), logger, store,
			func(ctx context.Context, token string) (struct{}, error) {
				return struct{}{}, client.DeleteAnalysis(ctx, token, args[0])
			})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %s\n", args[0])
		return nil
	},
}

var statsConfig common.CommandConfig

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Summarize your analysis history",
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&statsConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}
		return common.RunBackendCommand(cmd.Context(), getLoggerFromContext(cmd.Context()), statsConfig, store,
			func(ctx context.Context, token string) (*types.StatsSummary, error) {
				return client.StatsSummary(ctx, token)
			})
	},
}

func init() {
	addOutputFlags(statsCmd, &statsConfig, types.StatsSummary{})
}

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report [analysis-id]",
	Short: "Download a PDF report for a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLoggerFromContext(cmd.Context())
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}

		pdf, err := common.CallWithRefresh(cmd.Context(), logger, store,
			func(ctx context.Context, token string) ([]byte, error) {
				analysis, err := client.Analysis(ctx, token, args[0])
				if err != nil {
					return nil, err
				}
				payload, err := json.Marshal(analysis)
				if err != nil {
					return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "Failed to encode analysis", err)
				}
				return client.DownloadReport(ctx, token, payload)
			})
		if err != nil {
			return err
		}
		return common.NewOutputHandler(logger).WriteBinary(pdf, reportOutput)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", defaultReportFile, "Output PDF file path")
}
