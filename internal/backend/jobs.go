package backend

import (
	"context"
	"net/http"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/types"
)

const (
	DefaultJobQuery    = "software developer"
	DefaultJobLocation = "India"
)

// MatchJob scores a resume against a job description.
// An analysis the backend could not produce is returned in-band with Error set.
func (c *Client) MatchJob(ctx context.Context, token string, req types.JobMatchRequest) (*types.JobMatchResult, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Please paste a job description first!", nil)
	}
	if req.Skills == nil {
		req.Skills = []string{}
	}

	resp, err := c.send(ctx, request{
		op:      "job_match",
		method:  http.MethodPost,
		path:    "/job-match",
		token:   token,
		body:    req,
		timeout: c.matchTimeout,
	})
	if err != nil {
		return nil, err
	}

	result, err := DecodeJobMatch(resp.Body())
	if err != nil {
		c.logger.LogError(err, "Job match response could not be decoded")
	}
	return &result, nil
}

// SearchJobs queries the job search proxy
func (c *Client) SearchJobs(ctx context.Context, token, query, location string) (*types.JobSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultJobQuery
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = DefaultJobLocation
	}

	resp, err := c.send(ctx, request{
		op:     "job_search",
		method: http.MethodGet,
		path:   "/job-search",
		token:  token,
		query:  map[string]string{"query": query, "location": location},
	})
	if err != nil {
		return nil, err
	}

	return &types.JobSearchResult{
		Query:    query,
		Location: location,
		Jobs:     DecodeJobs(resp.Body()),
	}, nil
}
