package backend

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"resumelens/internal/errors"
	"resumelens/internal/types"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

// AnalyzeResume uploads a PDF for parsing and scoring
func (c *Client) AnalyzeResume(ctx context.Context, token, filename string, pdf io.Reader) (*types.AnalysisResult, error) {
	if pdf == nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Please select a PDF file first", nil)
	}

	resp, err := c.send(ctx, request{
		op:     "analyze_resume",
		method: http.MethodPost,
		path:   "/resume/analyze",
		token:  token,
		upload: &upload{field: "file", filename: filename, contentType: "application/pdf", reader: pdf},
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[types.AnalysisResult](resp, "analyze_resume")
}

// NormalizePage returns the page and limit the backend accepts
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return page, limit
}

// History lists past analyses, newest first
func (c *Client) History(ctx context.Context, token string, page, limit int) (*types.AnalysisHistory, error) {
	page, limit = NormalizePage(page, limit)

	resp, err := c.send(ctx, request{
		op:     "history",
		method: http.MethodGet,
		path:   "/resume/history",
		token:  token,
		query: map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		},
	})
	if err != nil {
		return nil, err
	}

	history, err := decodeJSON[types.AnalysisHistory](resp, "history")
	if err != nil {
		return nil, err
	}
	if history.Analyses == nil {
		history.Analyses = []types.AnalysisResult{}
	}
	history.Page, history.Limit = page, limit
	return history, nil
}

// Analysis fetches one stored analysis
func (c *Client) Analysis(ctx context.Context, token, id string) (*types.AnalysisResult, error) {
	if id == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Analysis ID is required", nil)
	}

	resp, err := c.send(ctx, request{
		op:     "analysis",
		method: http.MethodGet,
		path:   "/resume/{id}",
		token:  token,
		params: map[string]string{"id": id},
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[types.AnalysisResult](resp, "analysis")
}

// DeleteAnalysis removes a stored analysis
func (c *Client) DeleteAnalysis(ctx context.Context, token, id string) error {
	if id == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Analysis ID is required", nil)
	}

	_, err := c.send(ctx, request{
		op:     "delete_analysis",
		method: http.MethodDelete,
		path:   "/resume/{id}",
		token:  token,
		params: map[string]string{"id": id},
	})
	return err
}

// StatsSummary returns aggregate statistics over the user's analyses
func (c *Client) StatsSummary(ctx context.Context, token string) (*types.StatsSummary, error) {
	resp, err := c.send(ctx, request{
		op:     "stats_summary",
		method: http.MethodGet,
		path:   "/resume/stats/summary",
		token:  token,
	})
	if err != nil {
		return nil, err
	}

	stats, err := decodeJSON[types.StatsSummary](resp, "stats_summary")
	if err != nil {
		return nil, err
	}
	if stats.SkillFrequency == nil {
		stats.SkillFrequency = map[string]int{}
	}
	return stats, nil
}
