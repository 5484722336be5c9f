package contract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/wallet"
)

// recordingProvider records every call and send for handle tests.
type recordingProvider struct {
	calls []string
	sends []wallet.Tx
}

func (p *recordingProvider) RequestAccounts(ctx context.Context) ([]core.Address, error) {
	return []core.Address{testAddr(1)}, nil
}

func (p *recordingProvider) Accounts(ctx context.Context) ([]core.Address, error) {
	return []core.Address{testAddr(1)}, nil
}

func (p *recordingProvider) Call(ctx context.Context, to core.Address, method string, args ...any) ([]any, error) {
	p.calls = append(p.calls, method)
	return []any{uint64(0)}, nil
}

func (p *recordingProvider) SignAndSend(ctx context.Context, tx wallet.Tx) (wallet.TxHandle, error) {
	p.sends = append(p.sends, tx)
	return nil, nil
}

func (p *recordingProvider) OnAccountsChanged(h func([]core.Address)) func() { return func() {} }
func (p *recordingProvider) OnChainChanged(h func(uint64)) func()            { return func() {} }

func testAddr(b byte) core.Address {
	var a core.Address
	a[19] = b
	return a
}

func connectedIdentity(t *testing.T, p wallet.Provider) (*wallet.Session, *wallet.Identity) {
	t.Helper()
	s := wallet.NewSession(p, nil)
	id, err := s.Connect(context.Background())
	require.NoError(t, err)
	return s, id
}

func TestBindRequiresIdentity(t *testing.T) {
	_, err := Bind(nil, testAddr(9), LMS)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	p := &recordingProvider{}
	_, id := connectedIdentity(t, p)
	_, err = Bind(id, core.ZeroAddress, LMS)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestHandleCallChecksInterface(t *testing.T) {
	p := &recordingProvider{}
	_, id := connectedIdentity(t, p)
	h, err := Aggregate(id, testAddr(9))
	require.NoError(t, err)

	_, err = h.Call(context.Background(), "noSuchMethod")
	assert.ErrorIs(t, err, core.ErrUnknownMethod)

	_, err = h.Call(context.Background(), "courses")
	assert.Error(t, err, "arity mismatch must be caught locally")

	_, err = h.Call(context.Background(), "courseCount")
	require.NoError(t, err)
	assert.Equal(t, []string{"courseCount"}, p.calls)
}

func TestReadOnlyHandleRefusesSend(t *testing.T) {
	p := &recordingProvider{}
	h, err := AggregateReader(p, testAddr(9))
	require.NoError(t, err)

	_, err = h.Send(context.Background(), "createCourse", "t", "d")
	assert.ErrorIs(t, err, core.ErrReadOnlyHandle)
	assert.Empty(t, p.sends)

	// Reads still work and never go stale.
	assert.False(t, h.Stale())
	_, err = h.Call(context.Background(), "courseCount")
	assert.NoError(t, err)
}

func TestStaleHandle(t *testing.T) {
	p := &recordingProvider{}
	s, id := connectedIdentity(t, p)
	h, err := Aggregate(id, testAddr(9))
	require.NoError(t, err)

	s.Disconnect()

	require.True(t, h.Stale())
	_, err = h.Call(context.Background(), "courseCount")
	assert.ErrorIs(t, err, core.ErrStaleHandle)
	_, err = h.Send(context.Background(), "enrollInCourse", uint64(1))
	assert.ErrorIs(t, err, core.ErrStaleHandle)
	assert.Empty(t, p.sends)
}

func TestSendCarriesIdentityAddress(t *testing.T) {
	p := &recordingProvider{}
	_, id := connectedIdentity(t, p)
	h, err := Aggregate(id, testAddr(9))
	require.NoError(t, err)

	_, err = h.Send(context.Background(), "enrollInCourse", uint64(3))
	require.NoError(t, err)
	require.Len(t, p.sends, 1)
	assert.Equal(t, testAddr(1), p.sends[0].From)
	assert.Equal(t, testAddr(9), p.sends[0].To)
	assert.Equal(t, "enrollInCourse", p.sends[0].Method)
}

func TestReadOnlyMethodRefusedAsTransaction(t *testing.T) {
	p := &recordingProvider{}
	_, id := connectedIdentity(t, p)
	h, err := Aggregate(id, testAddr(9))
	require.NoError(t, err)

	_, err = h.Send(context.Background(), "courseCount")
	assert.Error(t, err)
	assert.Empty(t, p.sends)
}

func TestExamHandleAddressParsing(t *testing.T) {
	p := &recordingProvider{}
	_, id := connectedIdentity(t, p)

	_, err := Exam(id, "not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	h, err := Exam(id, "0x00000000000000000000000000000000000000ee")
	require.NoError(t, err)
	_, err = h.Call(context.Background(), "startTime")
	assert.NoError(t, err)
}

func TestNewExamSourceModes(t *testing.T) {
	p := &recordingProvider{}
	_, id := connectedIdentity(t, p)

	agg, err := NewExamSource(AggregateSource, id, testAddr(9))
	require.NoError(t, err)
	assert.NotNil(t, agg)

	st, err := NewExamSource(StandaloneSource, id, testAddr(9))
	require.NoError(t, err)
	assert.NotNil(t, st)

	_, err = NewExamSource(SourceMode("factory"), id, testAddr(9))
	assert.Error(t, err)
}
