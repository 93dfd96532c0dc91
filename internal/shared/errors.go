package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("not allowed")

	// Catalog and relay errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRelayFailure       = fmt.Errorf("relay request failed")
	ErrAllRelaysFailed    = fmt.Errorf("all relay proxies failed")
	ErrRelayReturnedHTML  = fmt.Errorf("the relay proxy returned HTML instead of JSON, try again later")
	ErrMalformedResponse  = fmt.Errorf("unexpected response structure")

	// Persistence errors
	ErrNotFound     = fmt.Errorf("document not found")
	ErrPostNotFound = fmt.Errorf("post does not exist")
	ErrUserNotFound = fmt.Errorf("user not found")

	// State layer errors
	ErrDispatchInProgress = fmt.Errorf("cannot dispatch while dispatching")

	// Playback errors
	ErrNoPreview = fmt.Errorf("track has no preview")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
