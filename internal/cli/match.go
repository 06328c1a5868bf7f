package cli

import (
	"context"
	"strings"

	"resumelens/internal/backend"
	"resumelens/internal/common"
	"resumelens/internal/display"
	"resumelens/internal/errors"
	"resumelens/internal/types"
	"resumelens/internal/validation"

	"github.com/spf13/cobra"
)

var (
	matchConfig common.CommandConfig
	matchFlags  struct {
		resumeText string
		resumeFile string
		jobFile    string
		analysisID string
		skills     []string
	}
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score a resume against a job description",
	Long: `Compare a resume with a job description and report the match score,
matched and missing keywords, strengths, weaknesses and a recommendation.

The resume comes from --resume-text, --resume-file, or the raw text of a
stored analysis given with --analysis.`,
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&matchConfig),
	RunE:    runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchFlags.resumeText, "resume-text", "", "Resume text")
	matchCmd.Flags().StringVar(&matchFlags.resumeFile, "resume-file", "", "Plain text resume file")
	matchCmd.Flags().StringVar(&matchFlags.analysisID, "analysis", "", "Use the text and skills of a stored analysis")
	matchCmd.Flags().StringVar(&matchFlags.jobFile, "job-file", "", "Job description file")
	matchCmd.Flags().StringSliceVar(&matchFlags.skills, "skills", nil, "Comma separated skills")
	matchCmd.MarkFlagsMutuallyExclusive("resume-text", "resume-file", "analysis")
	_ = matchCmd.MarkFlagRequired("job-file")
	addOutputFlags(matchCmd, &matchConfig, types.JobMatchResult{})
}

func runMatch(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	files := common.NewFileProcessor(logger)

	contents, err := files.ValidateAndReadFiles(matchFlags.jobFile)
	if err != nil {
		return err
	}
	form := validation.MatchForm{JobDescription: contents[0]}
	if fieldErrs := form.Validate(); fieldErrs != nil {
		return fieldErrs
	}

	resumeText := matchFlags.resumeText
	if matchFlags.resumeFile != "" {
		if resumeText, err = files.ReadFile(matchFlags.resumeFile); err != nil {
			return err
		}
	}

	client := newBackendClient(cmd)
	store, err := newCredentialStore(cmd, client)
	if err != nil {
		return err
	}

	logger.Info("Starting job match",
		"job_chars", len(form.JobDescription),
		"from_analysis", matchFlags.analysisID != "",
		"output_format", matchConfig.OutputFormat)

	return common.RunBackendCommand(cmd.Context(), logger, matchConfig, store,
		func(ctx context.Context, token string) (*types.JobMatchResult, error) {
			req := types.JobMatchRequest{
				ResumeText:     resumeText,
				JobDescription: form.JobDescription,
				Skills:         matchFlags.skills,
			}
			if matchFlags.analysisID != "" {
				analysis, err := client.Analysis(ctx, token, matchFlags.analysisID)
				if err != nil {
					return nil, err
				}
				req.ResumeText = analysis.RawText
				if len(req.Skills) == 0 {
					req.Skills = analysis.Skills
				}
			}
			if strings.TrimSpace(req.ResumeText) == "" {
				return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
					"A resume is required: use --resume-text, --resume-file or --analysis", nil)
			}
			return client.MatchJob(ctx, token, req)
		})
}

var (
	searchConfig common.CommandConfig
	searchFlags  struct {
		query    string
		location string
	}
)

var searchCmd = &cobra.Command{
	Use:     "search",
	Short:   "Search job listings",
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&searchConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}
		return common.RunBackendCommand(cmd.Context(), getLoggerFromContext(cmd.Context()), searchConfig, store,
			func(ctx context.Context, token string) (*types.JobSearchResult, error) {
				return client.SearchJobs(ctx, token, searchFlags.query, searchFlags.location)
			})
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.query, "query", backend.DefaultJobQuery, "Job title or keywords")
	searchCmd.Flags().StringVar(&searchFlags.location, "location", backend.DefaultJobLocation, "Job location")
	addOutputFlags(searchCmd, &searchConfig, types.JobSearchResult{})
}

var coursesConfig common.CommandConfig

var coursesCmd = &cobra.Command{
	Use:   "courses [field]",
	Short: "List recommended courses for a career field",
	Long: `List courses for a career field such as "Data Science" or "web-development".
Field names are normalized the same way the web pages do.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&coursesConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}
		field := display.FieldSlug(args[0])
		return common.RunBackendCommand(cmd.Context(), getLoggerFromContext(cmd.Context()), coursesConfig, store,
			func(ctx context.Context, token string) (*types.CourseList, error) {
				return client.Courses(ctx, token, field)
			})
	},
}

func init() {
	addOutputFlags(coursesCmd, &coursesConfig, types.CourseList{})
}

var (
	rewriteConfig common.CommandConfig
	rewriteFlags  struct {
		text string
		file string
		role string
	}
)

var rewriteCmd = &cobra.Command{
	Use:     "rewrite",
	Short:   "Rewrite a resume for a target role",
	Args:    cobra.NoArgs,
	PreRunE: resolveOutputFormat(&rewriteConfig),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLoggerFromContext(cmd.Context())

		form := validation.RewriteForm{Text: rewriteFlags.text, TargetRole: rewriteFlags.role}
		if rewriteFlags.file != "" {
			contents, err := common.NewFileProcessor(logger).ValidateAndReadFiles(rewriteFlags.file)
			if err != nil {
				return err
			}
			form.Text = contents[0]
		}
		if fieldErrs := form.Validate(); fieldErrs != nil {
			return fieldErrs
		}

		client := newBackendClient(cmd)
		store, err := newCredentialStore(cmd, client)
		if err != nil {
			return err
		}
		return common.RunBackendCommand(cmd.Context(), logger, rewriteConfig, store,
			func(ctx context.Context, token string) (*types.RewriteResult, error) {
				return client.Rewrite(ctx, token, form.Request())
			})
	},
}

func init() {
	rewriteCmd.Flags().StringVar(&rewriteFlags.text, "text", "", "Resume text")
	rewriteCmd.Flags().StringVar(&rewriteFlags.file, "file", "", "Plain text resume file")
	rewriteCmd.Flags().StringVar(&rewriteFlags.role, "role", "", "Target role, e.g. \"Backend Engineer\"")
	rewriteCmd.MarkFlagsMutuallyExclusive("text", "file")
	addOutputFlags(rewriteCmd, &rewriteConfig, types.RewriteResult{})
}
