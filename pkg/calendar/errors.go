package calendar

import "fmt"

var (
	// ErrProviderUnavailable means no usable credential or a transport failure;
	// the caller may retry later.
	ErrProviderUnavailable = fmt.Errorf("calendar provider is not available")
	// ErrProviderRejected means the provider returned a request-level error;
	// retrying the same request will not help.
	ErrProviderRejected = fmt.Errorf("calendar provider rejected the request")
	ErrEventNotFound    = fmt.Errorf("event not found")
)
