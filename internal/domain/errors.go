package domain

import "fmt"

// ReferentialError reports a transaction write referencing an account id that
// does not exist in the local store. The write is aborted.
type ReferentialError struct {
	AccountID string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("referenced account %s does not exist", e.AccountID)
}

// AccountNotFoundError reports a balance effect application against a missing
// account, typically a race with a concurrent account delete.
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

// DuplicateKeyError reports a plain insert colliding with an existing row id
// where upsert semantics were not requested.
type DuplicateKeyError struct {
	ID string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("row %s already exists", e.ID)
}

// OfflineDeleteError reports a transaction delete attempted without
// connectivity. No local or remote state changes.
type OfflineDeleteError struct{}

func (e *OfflineDeleteError) Error() string {
	return "no network connection, transaction delete requires connectivity"
}

// RemoteUploadError wraps a single-row upload failure during a push sweep.
// It is logged and skipped; the row stays dirty for the next sweep.
type RemoteUploadError struct {
	Kind string
	ID   string
	Err  error
}

func (e *RemoteUploadError) Error() string {
	return fmt.Sprintf("upload %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *RemoteUploadError) Unwrap() error { return e.Err }

// RemoteDownloadError wraps a single-row download or local upsert failure
// during a pull. Logged and skipped.
type RemoteDownloadError struct {
	Kind string
	ID   string
	Err  error
}

func (e *RemoteDownloadError) Error() string {
	return fmt.Sprintf("download %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *RemoteDownloadError) Unwrap() error { return e.Err }

// RemoteDeleteError wraps a best-effort remote delete that failed after a
// successful local delete. Swallowed by the engine; the remote row is orphaned
// until a later manual cleanup.
type RemoteDeleteError struct {
	Kind string
	ID   string
	Err  error
}

func (e *RemoteDeleteError) Error() string {
	return fmt.Sprintf("remote delete %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *RemoteDeleteError) Unwrap() error { return e.Err }
