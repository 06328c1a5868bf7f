package backend

import (
	"context"
	"net/http"

	"resumelens/internal/errors"
	"resumelens/internal/types"
)

// Courses lists the learning resources for a field slug such as "web_development"
func (c *Client) Courses(ctx context.Context, token, field string) (*types.CourseList, error) {
	if field == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Course field is required", nil)
	}

	resp, err := c.send(ctx, request{
		op:     "courses",
		method: http.MethodGet,
		path:   "/api/courses/{field}",
		token:  token,
		params: map[string]string{"field": field},
	})
	if err != nil {
		return nil, err
	}

	return &types.CourseList{Field: field, Courses: DecodeCourses(field, resp.Body())}, nil
}

// AllCourses returns every course list keyed by field slug
func (c *Client) AllCourses(ctx context.Context, token string) (map[string][]types.Course, error) {
	resp, err := c.send(ctx, request{
		op:     "all_courses",
		method: http.MethodGet,
		path:   "/api/all-courses",
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return DecodeAllCourses(resp.Body()), nil
}
