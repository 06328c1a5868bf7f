package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/types"
)

// DownloadReport renders an analysis as a PDF report on the backend
func (c *Client) DownloadReport(ctx context.Context, token string, payload json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "No analysis data available for the report", nil)
	}

	resp, err := c.send(ctx, request{
		op:      "download_report",
		method:  http.MethodPost,
		path:    "/download-report",
		token:   token,
		body:    []byte(trimmed),
		headers: map[string]string{"Content-Type": "application/json", "Accept": "application/pdf"},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Body()) == 0 {
		return nil, errors.NewBackendError(errors.ErrCodeDecodeFailed, "Empty response from server", resp.StatusCode(), nil)
	}
	return resp.Body(), nil
}

// Rewrite asks the backend to rewrite resume text for a target role
func (c *Client) Rewrite(ctx context.Context, token string, req types.RewriteRequest) (*types.RewriteResult, error) {
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.TargetRole) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Please enter text and target role.", nil)
	}

	resp, err := c.send(ctx, request{
		op:     "rewrite",
		method: http.MethodPost,
		path:   "/rewrite",
		token:  token,
		body:   req,
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[types.RewriteResult](resp, "rewrite")
}
