package magento

import "fmt"

// TransportError wraps a network-level failure: DNS, connect, TLS or timeout.
// The request may never have reached the API, so retrying is safe.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("magento: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a request that reached the API and came back unusable: a
// non-2xx status or a payload that does not decode. Retrying the same request
// would fail the same way.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("magento: api error: %s", e.Message)
	}
	return fmt.Sprintf("magento: api error: status %d: %s", e.StatusCode, e.Message)
}
