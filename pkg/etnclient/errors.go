package etnclient

import "fmt"

// UnsupportedAssetError reports a destination token that is not in the asset
// registry. It is returned before any network traffic happens.
type UnsupportedAssetError struct {
	Token string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("Unsupported token: %s", e.Token)
}

// ExecutionError wraps a failure while building, submitting, or mining a
// destination-chain transaction. Stage identifies the failed step for
// metrics and logs.
type ExecutionError struct {
	Stage string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at %s: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
