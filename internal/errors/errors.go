// Package errors defines the error taxonomy of the flow classification and
// PnL pipeline. Everything here is non-fatal by design except registry errors:
// a batch run completes and reports its warnings instead of halting on a bad row.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/wallet-flow-tracker/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryData represents malformed or droppable input rows
	CategoryData ErrorCategory = "data"
	// CategoryLookup represents contract-lookup collaborator failures
	CategoryLookup ErrorCategory = "lookup"
	// CategoryConsistency represents violated accounting invariants
	CategoryConsistency ErrorCategory = "consistency"
	// CategoryRegistry represents wallet registry problems (the only fatal kind)
	CategoryRegistry ErrorCategory = "registry"
	// CategoryStorage represents database/cache errors
	CategoryStorage ErrorCategory = "storage"
	// CategoryValidation represents bad request parameters on the API surface
	CategoryValidation ErrorCategory = "validation"
)

// ErrEmptyWalletSet is returned when the wallet registry is empty or absent.
// Classification is meaningless without it, so this one halts the run.
var ErrEmptyWalletSet = stderrors.New("wallet registry is empty")

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewMalformedRecordError marks an input row missing required fields. The row
// is dropped and counted, never fatal.
func NewMalformedRecordError(reason string, rowIndex int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryData,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "MALFORMED_RECORD",
		Message:    fmt.Sprintf("record %d dropped: %s", rowIndex, reason),
		Details: map[string]interface{}{
			"row":    rowIndex,
			"reason": reason,
		},
	}
}

// NewClassificationUnavailableError marks a contract lookup failure. The
// classifier degrades the address to external_wallet and keeps going.
func NewClassificationUnavailableError(address string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryLookup,
		StatusCode: http.StatusBadGateway,
		Code:       "CLASSIFICATION_UNAVAILABLE",
		Message:    fmt.Sprintf("contract lookup failed for %s, degraded to %s", address, types.KindExternalWallet),
		Cause:      cause,
		Details: map[string]interface{}{
			"address":  address,
			"fallback": string(types.KindExternalWallet),
		},
	}
}

// NewConsistencyViolationError flags a non-zero internal balance. The summary
// is still produced; a non-zero residual means the classifier has a bug or the
// input is missing a leg, so it is surfaced prominently.
func NewConsistencyViolationError(residualUSD string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConsistency,
		StatusCode: http.StatusConflict,
		Code:       "CONSISTENCY_VIOLATION",
		Message:    fmt.Sprintf("internal flows do not net to zero, residual %s USD", residualUSD),
		Details: map[string]interface{}{
			"residualUsd": residualUSD,
		},
	}
}

// NewDuplicatePositionError marks a same-timestamp snapshot collision, resolved
// by keeping the last-seen row.
func NewDuplicatePositionError(positionID string, timestamp string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryData,
		StatusCode: http.StatusConflict,
		Code:       "DUPLICATE_POSITION",
		Message:    fmt.Sprintf("duplicate snapshot for position %s at %s, keeping last-seen row", positionID, timestamp),
		Details: map[string]interface{}{
			"positionId": positionID,
			"timestamp":  timestamp,
		},
	}
}

// NewEmptyWalletSetError wraps ErrEmptyWalletSet with categorization.
func NewEmptyWalletSetError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRegistry,
		StatusCode: http.StatusPreconditionFailed,
		Code:       "EMPTY_WALLET_SET",
		Message:    "wallet registry is empty or absent, classification is meaningless",
		Cause:      ErrEmptyWalletSet,
	}
}

// NewStorageError creates a database/cache error
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryStorage,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORAGE_ERROR",
		Message:    fmt.Sprintf("storage error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}
	if stderrors.Is(err, ErrEmptyWalletSet) {
		return NewEmptyWalletSetError()
	}
	return &CategorizedError{
		Category:   CategoryStorage,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    "unexpected error",
		Cause:      err,
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsFatal reports whether an error must halt a batch run. Only registry
// errors qualify; every data-quality error is reported and skipped.
func IsFatal(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == CategoryRegistry
}

// WarningCategoryOf maps a categorized error to its run-report bucket.
// Returns false for errors that are not tracked as warnings.
func WarningCategoryOf(err error) (types.WarningCategory, bool) {
	catErr := Categorize(err)
	if catErr == nil {
		return "", false
	}
	switch catErr.Code {
	case "MALFORMED_RECORD":
		return types.WarnMalformedRecord, true
	case "CLASSIFICATION_UNAVAILABLE":
		return types.WarnClassificationUnavailable, true
	case "CONSISTENCY_VIOLATION":
		return types.WarnConsistencyViolation, true
	case "DUPLICATE_POSITION":
		return types.WarnDuplicatePosition, true
	default:
		return "", false
	}
}
