package orchestrator

import (
	"fmt"
	"strings"

	"github.com/stxbridge/bridger/pkg/models"
)

// ValidationError reports a source transaction whose contract log carried no
// usable swap intent. Intent holds whatever fields did decode, for the API
// response.
type ValidationError struct {
	TxID    string
	Missing []string
	Intent  *models.SwapIntent
}

func (e *ValidationError) Error() string {
	if e.Intent == nil {
		return fmt.Sprintf("no swap intent found in transaction %s", e.TxID)
	}
	return fmt.Sprintf("incomplete swap intent in transaction %s: missing %s", e.TxID, strings.Join(e.Missing, ", "))
}

// StoreError wraps a persistence failure. Unlike execution failures it has
// no order to record an error message on, so it surfaces to the caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("order store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
