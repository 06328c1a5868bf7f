package common

import (
	"context"

	"resumelens/internal/errors"
)

// TokenSource supplies the CLI's access token and renews it on demand
type TokenSource interface {
	AccessToken() (string, error)
	// Refresh exchanges the stored refresh token; implementations clear credentials when it fails
	Refresh(ctx context.Context) (string, error)
}

// BackendOperationFunc calls the backend with an access token
type BackendOperationFunc[Output any] func(ctx context.Context, token string) (Output, error)

// CallWithRefresh runs op, refreshing the token and retrying once when the backend answers 401
func CallWithRefresh[Output any](ctx context.Context, logger *errors.Logger, tokens TokenSource, op BackendOperationFunc[Output]) (Output, error) {
	var zero Output

	token, err := tokens.AccessToken()
	if err != nil {
		return zero, err
	}

	result, err := op(ctx, token)
	if err == nil || !errors.IsUnauthorized(err) {
		return result, err
	}

	logger.Debug("Access token rejected, refreshing")
	token, err = tokens.Refresh(ctx)
	if err != nil {
		return zero, err
	}
	return op(ctx, token)
}

// RunBackendCommand encapsulates the common logic for authenticated CLI commands:
// call the backend, retrying once after a token refresh, then format and write the result.
func RunBackendCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	tokens TokenSource,
	op BackendOperationFunc[Output],
) error {
	result, err := CallWithRefresh(ctx, logger, tokens, op)
	if err != nil {
		return err
	}
	return NewOutputHandler(logger).HandleOutput(result, cmdConfig)
}
