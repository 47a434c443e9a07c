package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/pkg/clients/provider"
)

// EventKind discriminates change notifications from the signing agent.
type EventKind int

const (
	// EventIdentityChanged fires when the agent switches to a different
	// account. The session re-derives itself without prompting.
	EventIdentityChanged EventKind = iota
	// EventIdentityCleared fires when the agent revokes all accounts.
	EventIdentityCleared
	// EventNetworkChanged fires when the chain id changes. Consumers must
	// rebuild anything bound to the old chain rather than repair it.
	EventNetworkChanged
)

// Event is one observed agent-side change.
type Event struct {
	Kind     EventKind
	Identity string
	ChainID  string
}

// AgentStatus is the typed result of the capability probe.
type AgentStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version"`
}

// Manager owns the connection lifecycle to the external signing agent:
// the active identity, the chain context, and a polling watcher that
// turns agent-side changes into events on an owned channel.
type Manager struct {
	provider provider.Client
	logger   *zap.Logger

	mu       sync.RWMutex
	identity string
	chainID  string

	events    chan Event
	watchStop context.CancelFunc
	watchDone chan struct{}
	closed    bool
	closeOnce sync.Once
}

// NewManager wires a session manager around the given provider client.
func NewManager(client provider.Client, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider: client,
		logger:   logger,
		events:   make(chan Event, 8),
	}
}

// Probe checks whether a compatible signing agent is reachable without
// raising any user prompt.
func (m *Manager) Probe(ctx context.Context) AgentStatus {
	version, err := m.provider.ClientVersion(ctx)
	if err != nil {
		m.logger.Debug("agent probe failed", zap.Error(err))
		return AgentStatus{}
	}
	return AgentStatus{Available: true, Version: version}
}

// Connect requests an active identity from the signing agent, prompting
// the user when no prior authorization exists.
func (m *Manager) Connect(ctx context.Context) error {
	if status := m.Probe(ctx); !status.Available {
		return models.ErrAgentUnavailable
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		var rpcErr *provider.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == provider.CodeUserRejected {
			return fmt.Errorf("%w: %s", models.ErrUserRejected, rpcErr.Message)
		}
		return fmt.Errorf("%w: %v", models.ErrConnectionFailed, err)
	}

	if len(accounts) == 0 {
		return fmt.Errorf("%w: agent returned no accounts", models.ErrConnectionFailed)
	}

	return m.initialize(ctx, accounts[0])
}

// Resume silently restores a session when the agent reports an
// already-authorized identity. Failures are logged, never surfaced.
func (m *Manager) Resume(ctx context.Context) bool {
	if status := m.Probe(ctx); !status.Available {
		return false
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		m.logger.Debug("silent reconnect failed", zap.Error(err))
		return false
	}
	if len(accounts) == 0 {
		return false
	}

	if err := m.initialize(ctx, accounts[0]); err != nil {
		m.logger.Debug("silent reconnect failed", zap.Error(err))
		return false
	}

	m.logger.Info("session resumed", zap.String("identity", accounts[0]))
	return true
}

// initialize re-derives session state for the given identity without
// prompting. Shared by Connect, Resume, and identity-change handling.
func (m *Manager) initialize(ctx context.Context, identity string) error {
	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrConnectionFailed, err)
	}

	m.mu.Lock()
	m.identity = identity
	m.chainID = chainID
	m.mu.Unlock()

	m.logger.Info("session initialized",
		zap.String("identity", identity),
		zap.String("chain_id", chainID))
	return nil
}

// Disconnect clears all session state. It has no failure mode.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.identity = ""
	m.chainID = ""
	m.mu.Unlock()
	m.logger.Info("session cleared")
}

// CurrentIdentity returns the active account address, or empty when no
// session is established.
func (m *Manager) CurrentIdentity() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// ChainID returns the hex chain id captured at initialization.
func (m *Manager) ChainID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chainID
}

// Connected reports whether an identity is present.
func (m *Manager) Connected() bool {
	return m.CurrentIdentity() != ""
}

// Events exposes the change notification channel. The channel is closed
// by Close.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Watch starts the change poller. Subsequent calls, and calls after
// Close, are no-ops.
func (m *Manager) Watch(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchStop != nil || m.closed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.watchStop = cancel
	m.watchDone = make(chan struct{})

	go m.watchLoop(ctx, interval)
}

// Close tears the watcher down deterministically and closes the event
// channel.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		stop := m.watchStop
		done := m.watchDone
		m.mu.Unlock()

		if stop != nil {
			stop()
			<-done
		}
		close(m.events)
	})
}

func (m *Manager) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(m.watchDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll compares agent-reported accounts and chain id against session
// state and emits events for any divergence.
func (m *Manager) poll(ctx context.Context) {
	if !m.Connected() {
		return
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		m.logger.Debug("account poll failed", zap.Error(err))
		return
	}

	if len(accounts) == 0 {
		m.Disconnect()
		m.emit(Event{Kind: EventIdentityCleared})
		return
	}

	current := m.CurrentIdentity()
	if accounts[0] != current {
		if err := m.initialize(ctx, accounts[0]); err != nil {
			m.logger.Warn("identity change re-init failed", zap.Error(err))
			return
		}
		m.emit(Event{Kind: EventIdentityChanged, Identity: accounts[0], ChainID: m.ChainID()})
		return
	}

	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		m.logger.Debug("chain poll failed", zap.Error(err))
		return
	}

	if chainID != m.ChainID() {
		m.mu.Lock()
		m.chainID = chainID
		m.mu.Unlock()
		m.logger.Warn("chain changed", zap.String("chain_id", chainID))
		m.emit(Event{Kind: EventNetworkChanged, Identity: current, ChainID: chainID})
	}
}

// emit drops the event when nobody is draining the channel; the poller
// must never stall on a slow consumer.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Debug("event dropped, channel full", zap.Int("kind", int(ev.Kind)))
	}
}
