package contract

import (
	"context"
	"fmt"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

// Handle is a callable contract bound to either a signing identity or, for
// read-only use, to the bare provider. A signer-bound handle dies the moment
// its identity is invalidated; it is never reused across identity changes.
type Handle struct {
	addr     core.Address
	iface    Interface
	identity *wallet.Identity
	provider wallet.Provider
}

// Bind returns a handle bound to the identity's signer. The handle can both
// read and send transactions.
func Bind(id *wallet.Identity, addr core.Address, iface Interface) (*Handle, error) {
	if id == nil || !id.Valid() {
		return nil, core.ErrNotConnected
	}
	if addr.IsZero() {
		return nil, core.ErrInvalidAddress
	}
	return &Handle{addr: addr, iface: iface, identity: id, provider: id.Provider()}, nil
}

// BindReader returns a provider-bound, read-only handle. Use it whenever no
// write is intended, so queries never trigger signature prompts.
func BindReader(provider wallet.Provider, addr core.Address, iface Interface) (*Handle, error) {
	if provider == nil {
		return nil, core.ErrProviderUnavailable
	}
	if addr.IsZero() {
		return nil, core.ErrInvalidAddress
	}
	return &Handle{addr: addr, iface: iface, provider: provider}, nil
}

// Aggregate binds the fixed-address LMS contract to the identity's signer.
func Aggregate(id *wallet.Identity, lmsAddr core.Address) (*Handle, error) {
	return Bind(id, lmsAddr, LMS)
}

// AggregateReader binds the LMS contract read-only.
func AggregateReader(provider wallet.Provider, lmsAddr core.Address) (*Handle, error) {
	return BindReader(provider, lmsAddr, LMS)
}

// Exam binds a specific exam contract instance to the identity's signer.
// The address is supplied dynamically, one per exam.
func Exam(id *wallet.Identity, examAddr string) (*Handle, error) {
	addr, err := core.ParseAddress(examAddr)
	if err != nil {
		return nil, err
	}
	return Bind(id, addr, ExamIface)
}

// ExamReader binds an exam contract instance read-only.
func ExamReader(provider wallet.Provider, examAddr string) (*Handle, error) {
	addr, err := core.ParseAddress(examAddr)
	if err != nil {
		return nil, err
	}
	return BindReader(provider, addr, ExamIface)
}

// Address returns the bound contract address.
func (h *Handle) Address() core.Address {
	return h.addr
}

// ReadOnly reports whether the handle has no signer.
func (h *Handle) ReadOnly() bool {
	return h.identity == nil
}

// Stale reports whether the handle's identity has been invalidated.
// Provider-bound handles never go stale.
func (h *Handle) Stale() bool {
	return h.identity != nil && !h.identity.Valid()
}

// Call performs a read-only call against the bound contract.
func (h *Handle) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	if h.Stale() {
		return nil, core.ErrStaleHandle
	}
	if err := h.iface.check(method, len(args), false); err != nil {
		return nil, err
	}
	return h.provider.Call(ctx, h.addr, method, args...)
}

// Send signs and broadcasts a state-changing call. Read-only handles refuse.
func (h *Handle) Send(ctx context.Context, method string, args ...any) (wallet.TxHandle, error) {
	if h.ReadOnly() {
		return nil, fmt.Errorf("%s.%s: %w", h.iface.Name, method, core.ErrReadOnlyHandle)
	}
	if h.Stale() {
		return nil, core.ErrStaleHandle
	}
	if err := h.iface.check(method, len(args), true); err != nil {
		return nil, err
	}
	return h.provider.SignAndSend(ctx, wallet.Tx{
		From:   h.identity.Address,
		To:     h.addr,
		Method: method,
		Args:   args,
	})
}
