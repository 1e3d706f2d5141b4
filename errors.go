package velograph

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrMissingContext is returned when the namespace or database
	// is not set on the operation options.
	ErrMissingContext = errors.New("velograph: missing context")

	// ErrEndpointNotFound is returned when an enforced relation
	// references a record that does not exist.
	ErrEndpointNotFound = errors.New("velograph: endpoint not found")

	// ErrEndpointTable is returned when an edge endpoint belongs to a
	// table the relation table does not accept.
	ErrEndpointTable = errors.New("velograph: endpoint table not allowed")

	// ErrStorage is matched by every StorageError.
	ErrStorage = errors.New("velograph: storage fault")

	// ErrTableNotFound is returned in strict mode for undefined tables.
	ErrTableNotFound = errors.New("velograph: table not found")

	// ErrMissingRecordID is returned when a document is processed
	// without a record identity.
	ErrMissingRecordID = errors.New("velograph: document has no record id")

	// ErrTxFinished is returned when a transaction is used after
	// it was committed or cancelled.
	ErrTxFinished = errors.New("velograph: transaction already finished")

	// ErrTxReadonly is returned when writing through a read-only transaction.
	ErrTxReadonly = errors.New("velograph: transaction is read-only")
)

// MissingContextError reports which selector was not set on the options.
type MissingContextError struct {
	Name string // "namespace" or "database"
}

// Error returns the error string.
func (e *MissingContextError) Error() string {
	return fmt.Sprintf("velograph: no %s specified", e.Name)
}

// Is reports whether the target error matches MissingContextError.
func (e *MissingContextError) Is(err error) bool {
	return err == ErrMissingContext
}

// NewMissingContextError returns a new MissingContextError.
func NewMissingContextError(name string) *MissingContextError {
	return &MissingContextError{Name: name}
}

// IsMissingContext returns true if the error is a MissingContextError.
func IsMissingContext(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingContextError
	return errors.As(err, &e) || errors.Is(err, ErrMissingContext)
}

// EndpointNotFoundError names the edge endpoint that does not exist.
// The mutation that produced it must be rejected as a whole.
type EndpointNotFoundError struct {
	ID string // textual record id of the missing endpoint
}

// Error returns the error string.
func (e *EndpointNotFoundError) Error() string {
	return fmt.Sprintf("velograph: expected a record with id %s to exist", e.ID)
}

// Is reports whether the target error matches EndpointNotFoundError.
func (e *EndpointNotFoundError) Is(err error) bool {
	return err == ErrEndpointNotFound
}

// NewEndpointNotFoundError returns a new EndpointNotFoundError.
func NewEndpointNotFoundError(id fmt.Stringer) *EndpointNotFoundError {
	return &EndpointNotFoundError{ID: id.String()}
}

// IsEndpointNotFound returns true if the error is an EndpointNotFoundError.
func IsEndpointNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *EndpointNotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrEndpointNotFound)
}

// EndpointTableError names an edge endpoint whose table is not listed in the
// in or out tables of the relation table.
type EndpointTableError struct {
	ID      string   // textual record id of the endpoint
	Allowed []string // tables accepted at that end
}

// Error returns the error string.
func (e *EndpointTableError) Error() string {
	return fmt.Sprintf("velograph: record %s is not in one of the tables %s", e.ID, strings.Join(e.Allowed, ", "))
}

// Is reports whether the target error matches EndpointTableError.
func (e *EndpointTableError) Is(err error) bool {
	return err == ErrEndpointTable
}

// StorageError wraps a failure of the underlying key-value store.
type StorageError struct {
	Op  string // exists, get, set, del, scan, begin, commit, cancel
	Err error  // Underlying driver error
}

// Error returns the error string.
func (e *StorageError) Error() string {
	return fmt.Sprintf("velograph: storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches StorageError.
func (e *StorageError) Is(err error) bool {
	return err == ErrStorage
}

// NewStorageError returns a new StorageError, or nil if err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError returns true if the error is a StorageError.
func IsStorageError(err error) bool {
	if err == nil {
		return false
	}
	var e *StorageError
	return errors.As(err, &e)
}

// TableNotFoundError is returned in strict mode when a table was never defined.
type TableNotFoundError struct {
	Name string
}

// Error returns the error string.
func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("velograph: the table %q does not exist", e.Name)
}

// Is reports whether the target error matches TableNotFoundError.
func (e *TableNotFoundError) Is(err error) bool {
	return err == ErrTableNotFound
}

// NewTableNotFoundError returns a new TableNotFoundError.
func NewTableNotFoundError(name string) *TableNotFoundError {
	return &TableNotFoundError{Name: name}
}

// IsTableNotFound returns true if the error is a TableNotFoundError.
func IsTableNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *TableNotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrTableNotFound)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err      error // Original error that triggered rollback
	Rollback error // Error returned by the rollback itself
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("velograph: %v: rolling back transaction: %v", e.Err, e.Rollback)
}

// Unwrap returns both the original and the rollback error.
func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.Rollback}
}
