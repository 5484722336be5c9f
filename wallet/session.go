package wallet

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chainlms-net/lms/core"
)

// Identity is the signing identity derived from a connected wallet. At most
// one identity is active per session; every contract handle is derived from
// it and dies with it.
type Identity struct {
	Address core.Address

	session *Session
	epoch   uint64
}

// Provider returns the provider the identity signs through.
func (id *Identity) Provider() Provider {
	return id.session.provider
}

// Valid reports whether the identity is still the session's current one.
// It turns false the instant the session disconnects or switches accounts.
func (id *Identity) Valid() bool {
	if id == nil || id.session == nil {
		return false
	}
	return id.session.Epoch() == id.epoch
}

// Snapshot is the observable session state exposed to the rest of the system.
type Snapshot struct {
	Address    core.Address
	Connected  bool
	Connecting bool
	Err        error
}

// Session manages the lifetime of the wallet connection: connect,
// auto-reconnect at startup, account/network change handling, disconnect.
//
// Every identity mutation bumps the session epoch under the lock, so derived
// handles observe the invalidation before any pending read resolves.
type Session struct {
	provider Provider
	logger   *slog.Logger

	mu         sync.Mutex
	identity   *Identity
	err        error
	connecting bool
	epoch      uint64

	subs    map[int]func(Snapshot)
	nextSub int

	removeAccounts func()
	removeChain    func()
}

// NewSession creates a session over the given provider and subscribes to its
// change notifications for the session's lifetime. A nil provider is allowed
// and yields a session whose Connect fails with ErrProviderUnavailable.
func NewSession(provider Provider, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		provider: provider,
		logger:   logger,
		subs:     make(map[int]func(Snapshot)),
	}
	if provider != nil {
		s.removeAccounts = provider.OnAccountsChanged(s.accountsChanged)
		s.removeChain = provider.OnChainChanged(s.chainChanged)
	}
	return s
}

// Connect requests account access from the wallet, prompting the human if
// needed. On success the previous error state is cleared and a fresh
// identity is returned.
func (s *Session) Connect(ctx context.Context) (*Identity, error) {
	if s.provider == nil {
		s.setError(core.ErrProviderUnavailable)
		return nil, core.ErrProviderUnavailable
	}

	s.setConnecting(true)
	defer s.setConnecting(false)

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		if IsUserRejected(err) {
			err = core.ErrUserRejected
		}
		s.setError(err)
		return nil, err
	}
	if len(accounts) == 0 {
		s.setError(core.ErrNotConnected)
		return nil, core.ErrNotConnected
	}
	return s.adopt(accounts[0]), nil
}

// AutoConnect silently queries already-authorized accounts at startup. When
// none exist the session stays unauthenticated without surfacing an error.
func (s *Session) AutoConnect(ctx context.Context) (*Identity, error) {
	if s.provider == nil {
		return nil, nil
	}

	s.setConnecting(true)
	defer s.setConnecting(false)

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		s.logger.Warn("auto-connect query failed", "error", err)
		return nil, nil
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return s.adopt(accounts[0]), nil
}

// Disconnect clears the identity and invalidates all derived handles.
// Safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.identity == nil && s.err == nil {
		s.mu.Unlock()
		return
	}
	s.identity = nil
	s.err = nil
	s.epoch++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Close removes the provider subscriptions and disconnects.
func (s *Session) Close() {
	if s.removeAccounts != nil {
		s.removeAccounts()
	}
	if s.removeChain != nil {
		s.removeChain()
	}
	s.Disconnect()
}

// Identity returns the current identity, or nil when not connected.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Epoch returns the current invalidation epoch.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Snapshot returns the observable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer for session state changes. The returned
// function removes it.
func (s *Session) Subscribe(f func(Snapshot)) (remove func()) {
	s.mu.Lock()
	n := s.nextSub
	s.nextSub++
	s.subs[n] = f
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, n)
		s.mu.Unlock()
	}
}

// adopt installs addr as the session's identity, bumping the epoch so stale
// handles can never sign again.
func (s *Session) adopt(addr core.Address) *Identity {
	s.mu.Lock()
	s.epoch++
	id := &Identity{Address: addr, session: s, epoch: s.epoch}
	s.identity = id
	s.err = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return id
}

// accountsChanged handles wallet account notifications. Zero accounts is a
// disconnect; a new account re-derives the identity without a prompt, since
// permission already exists.
func (s *Session) accountsChanged(accounts []core.Address) {
	if len(accounts) == 0 {
		s.logger.Info("wallet reported no accounts, disconnecting")
		s.Disconnect()
		return
	}
	s.logger.Info("wallet account changed", "address", accounts[0])
	s.adopt(accounts[0])
}

// chainChanged re-derives the identity on the new network. The authorized
// account set may differ per chain, so it is re-queried silently.
func (s *Session) chainChanged(chainID uint64) {
	s.logger.Info("wallet network changed", "chain_id", chainID)
	accounts, err := s.provider.Accounts(context.Background())
	if err != nil || len(accounts) == 0 {
		s.Disconnect()
		return
	}
	s.adopt(accounts[0])
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	s.identity = nil
	s.err = err
	s.epoch++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) setConnecting(v bool) {
	s.mu.Lock()
	s.connecting = v
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{Connecting: s.connecting, Err: s.err}
	if s.identity != nil {
		snap.Address = s.identity.Address
		snap.Connected = true
	}
	return snap
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	handlers := make([]func(Snapshot), 0, len(s.subs))
	for _, f := range s.subs {
		handlers = append(handlers, f)
	}
	s.mu.Unlock()
	for _, f := range handlers {
		f(snap)
	}
}
