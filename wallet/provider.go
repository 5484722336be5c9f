// Package wallet owns the browser-wallet boundary: the narrow provider
// interface the rest of the system talks through, and the session manager
// that derives a single canonical signing identity from it.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainlms-net/lms/core"
)

// Provider error codes, mirroring the injected-wallet convention.
const (
	CodeUserRejected = 4001
	CodeRevert       = 3
	CodeNetwork      = -32000
)

// Error is a failure reported by the wallet provider or the chain behind it.
// Reason carries the structured revert reason when the chain supplies one;
// Message is the raw provider message.
type Error struct {
	Code    int
	Reason  string
	Message string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("provider error %d: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// IsUserRejected reports whether err is the human dismissing a wallet prompt.
func IsUserRejected(err error) bool {
	if errors.Is(err, core.ErrUserRejected) {
		return true
	}
	var pe *Error
	return errors.As(err, &pe) && pe.Code == CodeUserRejected
}

// RevertReason extracts the structured revert reason from err, or "".
func RevertReason(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}

// Tx is a state-changing call ready for signing.
type Tx struct {
	From   core.Address
	To     core.Address
	Method string
	Args   []any
}

// Event is a log entry emitted by a confirmed transaction.
type Event struct {
	Name   string
	Values map[string]any
}

// Receipt is the confirmation record of a mined transaction.
type Receipt struct {
	TxHash      core.Hash
	BlockHeight uint64
	Events      []Event
}

// FindEvent returns the first event with the given name, if present.
func (r *Receipt) FindEvent(name string) (Event, bool) {
	for _, ev := range r.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

// TxHandle tracks a broadcast transaction. Once a transaction is broadcast it
// cannot be withdrawn; cancelling the context passed to Wait only stops
// waiting, it says nothing about the transaction's fate.
type TxHandle interface {
	Hash() core.Hash
	Wait(ctx context.Context) (*Receipt, error)
}

// Provider is the injected-wallet boundary. Account selection, signing and
// network switching all live behind it; the client only issues requests.
type Provider interface {
	// RequestAccounts asks the wallet for account access, prompting the
	// human if permission has not been granted yet.
	RequestAccounts(ctx context.Context) ([]core.Address, error)

	// Accounts returns the already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]core.Address, error)

	// Call performs a read-only contract call.
	Call(ctx context.Context, to core.Address, method string, args ...any) ([]any, error)

	// SignAndSend signs and broadcasts a state-changing transaction.
	SignAndSend(ctx context.Context, tx Tx) (TxHandle, error)

	// OnAccountsChanged registers a handler for wallet account changes.
	// The returned function removes the handler.
	OnAccountsChanged(h func(accounts []core.Address)) (remove func())

	// OnChainChanged registers a handler for network changes.
	OnChainChanged(h func(chainID uint64)) (remove func())
}
