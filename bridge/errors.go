package bridge

import "errors"

var (
	// ErrMalformedResponse is returned when the webview payload cannot be
	// percent-decoded or parsed as a settings object.
	ErrMalformedResponse = errors.New("malformed configuration response")
	// ErrStoreWrite is returned when the new record could not be persisted.
	ErrStoreWrite = errors.New("failed to store settings record")
	// ErrDeliveryRejected wraps the reason a watchface delivery failed.
	ErrDeliveryRejected = errors.New("watchface rejected settings message")
)
