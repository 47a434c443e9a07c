package models

import (
	"errors"
	"fmt"
)

// Session and ledger error taxonomy. Handlers map these onto HTTP
// statuses; services wrap them with the underlying agent error so the
// external message survives alongside the sentinel.
var (
	// ErrAgentUnavailable means no compatible signing agent answered the
	// capability probe.
	ErrAgentUnavailable = errors.New("signing agent unavailable")

	// ErrUserRejected means the human explicitly declined the connection
	// or signature prompt.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrConnectionFailed covers any other agent error during connect.
	ErrConnectionFailed = errors.New("wallet connection failed")

	// ErrNotConnected means a ledger operation was attempted without an
	// initialized session.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrSubmissionFailed means the write never made it into the mempool.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrConfirmationTimeout means the write was submitted but no receipt
	// arrived within the configured window. The transaction may still
	// confirm later; no automatic resubmission is performed.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")

	// ErrBackendUnavailable means the account store is unreachable.
	ErrBackendUnavailable = errors.New("account store unavailable")

	// ErrEmailTaken means registration collided with an existing account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IntegrityWarning flags a violated batch invariant. Warnings are
// non-fatal: the client observes external state it cannot correct, so
// they are rendered alongside the record instead of failing the read.
type IntegrityWarning struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (w IntegrityWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Detail)
}
