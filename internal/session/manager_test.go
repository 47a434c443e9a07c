package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/pkg/clients/provider"
)

// fakeAgent is an in-memory stand-in for the signing agent.
type fakeAgent struct {
	mu sync.Mutex

	down       bool
	rejectNext bool
	authorized []string
	chainID    string
}

func (f *fakeAgent) setAccounts(accounts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorized = accounts
}

func (f *fakeAgent) setChain(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainID = id
}

func (f *fakeAgent) ClientVersion(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return "", errors.New("connection refused")
	}
	return "FakeWallet/1.0", nil
}

func (f *fakeAgent) RequestAccounts(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectNext {
		return nil, &provider.RPCError{Code: provider.CodeUserRejected, Message: "User denied account authorization"}
	}
	return f.authorized, nil
}

func (f *fakeAgent) Accounts(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authorized, nil
}

func (f *fakeAgent) ChainID(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, nil
}

func (f *fakeAgent) SendTransaction(ctx context.Context, tx provider.TxArgs) (string, error) {
	return "", errors.New("not supported")
}

func (f *fakeAgent) CallContract(ctx context.Context, to string, data string) (string, error) {
	return "", errors.New("not supported")
}

func (f *fakeAgent) TransactionReceipt(ctx context.Context, txHash string) (*provider.Receipt, error) {
	return nil, errors.New("not supported")
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		authorized: []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		chainID:    "0x1",
	}
}

func TestConnectEstablishesIdentityAndChain(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)

	require.NoError(t, mgr.Connect(context.Background()))
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", mgr.CurrentIdentity())
	assert.Equal(t, "0x1", mgr.ChainID())
	assert.True(t, mgr.Connected())
}

func TestConnectAgentUnavailable(t *testing.T) {
	agent := newFakeAgent()
	agent.down = true
	mgr := NewManager(agent, nil)

	err := mgr.Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrAgentUnavailable)
	assert.False(t, mgr.Connected())
}

func TestConnectUserRejected(t *testing.T) {
	agent := newFakeAgent()
	agent.rejectNext = true
	mgr := NewManager(agent, nil)

	err := mgr.Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrUserRejected)
}

func TestConnectNoAccountsIsConnectionFailed(t *testing.T) {
	agent := newFakeAgent()
	agent.setAccounts()
	mgr := NewManager(agent, nil)

	err := mgr.Connect(context.Background())
	assert.ErrorIs(t, err, models.ErrConnectionFailed)
}

func TestResumeIsSilent(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)

	assert.True(t, mgr.Resume(context.Background()))
	assert.True(t, mgr.Connected())

	// No prior authorization: resume declines quietly.
	agent.setAccounts()
	mgr2 := NewManager(agent, nil)
	assert.False(t, mgr2.Resume(context.Background()))
	assert.False(t, mgr2.Connected())

	// Unreachable agent: still no error surfaces.
	agent.down = true
	mgr3 := NewManager(agent, nil)
	assert.False(t, mgr3.Resume(context.Background()))
}

func TestDisconnectClearsState(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)
	require.NoError(t, mgr.Connect(context.Background()))

	mgr.Disconnect()
	assert.Empty(t, mgr.CurrentIdentity())
	assert.Empty(t, mgr.ChainID())
	assert.False(t, mgr.Connected())
}

func TestProbeReturnsTypedStatus(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)

	status := mgr.Probe(context.Background())
	assert.True(t, status.Available)
	assert.Equal(t, "FakeWallet/1.0", status.Version)

	agent.down = true
	status = mgr.Probe(context.Background())
	assert.False(t, status.Available)
	assert.Empty(t, status.Version)
}

func waitEvent(t *testing.T, mgr *Manager) Event {
	t.Helper()
	select {
	case ev := <-mgr.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event observed")
		return Event{}
	}
}

func TestWatchEmitsIdentityChanged(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)
	require.NoError(t, mgr.Connect(context.Background()))

	mgr.Watch(10 * time.Millisecond)
	defer mgr.Close()

	agent.setAccounts("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	ev := waitEvent(t, mgr)
	assert.Equal(t, EventIdentityChanged, ev.Kind)
	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", ev.Identity)
	// The session re-derived itself without a prompt.
	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", mgr.CurrentIdentity())
}

func TestWatchEmitsIdentityCleared(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)
	require.NoError(t, mgr.Connect(context.Background()))

	mgr.Watch(10 * time.Millisecond)
	defer mgr.Close()

	agent.setAccounts()

	ev := waitEvent(t, mgr)
	assert.Equal(t, EventIdentityCleared, ev.Kind)
	assert.False(t, mgr.Connected())
}

func TestWatchEmitsNetworkChanged(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)
	require.NoError(t, mgr.Connect(context.Background()))

	mgr.Watch(10 * time.Millisecond)
	defer mgr.Close()

	agent.setChain("0x5")

	ev := waitEvent(t, mgr)
	assert.Equal(t, EventNetworkChanged, ev.Kind)
	assert.Equal(t, "0x5", ev.ChainID)
	assert.Equal(t, "0x5", mgr.ChainID())
}

func TestCloseIsDeterministic(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)
	require.NoError(t, mgr.Connect(context.Background()))

	mgr.Watch(10 * time.Millisecond)
	mgr.Close()
	mgr.Close() // idempotent

	_, open := <-mgr.Events()
	assert.False(t, open)
}

func TestWatchAfterCloseIsNoOp(t *testing.T) {
	agent := newFakeAgent()
	mgr := NewManager(agent, nil)
	require.NoError(t, mgr.Connect(context.Background()))

	mgr.Close()
	mgr.Watch(time.Millisecond)

	// No poller runs against the closed channel: a change that would
	// normally emit must not panic or produce an event.
	agent.setChain("0x5")
	time.Sleep(20 * time.Millisecond)

	_, open := <-mgr.Events()
	assert.False(t, open)
}
