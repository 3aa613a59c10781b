package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests with potential proxy/retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// Returns the response body as bytes or an error once every retry failed.
	Get(ctx context.Context, url string, params map[string]string) ([]byte, error)

	// -----------------------------------------------------------------------------

	// GetValidated is Get with validate run on each response body. A rejected
	// body is retried like any other failed attempt.
	GetValidated(ctx context.Context, url string, params map[string]string, validate func([]byte) error) ([]byte, error)
}
