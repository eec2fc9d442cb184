package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSlicer struct {
	mu    sync.Mutex
	fn    func(req SliceRequest) (SliceResult, error)
	calls []SliceRequest
}

func (s *stubSlicer) Slice(_ context.Context, req SliceRequest) (SliceResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return SliceResult{Grams: 80, TimeSec: 3600}, nil
}

func (s *stubSlicer) requests() []SliceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SliceRequest(nil), s.calls...)
}

type stubPricer struct {
	mu    sync.Mutex
	fn    func(req QuoteRequest) (QuoteResponse, error)
	calls []QuoteRequest
}

func (s *stubPricer) Quote(_ context.Context, req QuoteRequest) (QuoteResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return QuoteResponse{OriginalSubtotal: 50, Subtotal: 50, TaxAmount: 5, Total: 55}, nil
}

func (s *stubPricer) requests() []QuoteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]QuoteRequest(nil), s.calls...)
}

type stubCheckout struct {
	mu    sync.Mutex
	fn    func(req CheckoutRequest) (CheckoutResult, error)
	calls []CheckoutRequest
}

func (s *stubCheckout) Submit(_ context.Context, req CheckoutRequest) (CheckoutResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return CheckoutResult{OrderID: "ord-1"}, nil
}

func (s *stubCheckout) requests() []CheckoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CheckoutRequest(nil), s.calls...)
}

type stubOrientation struct {
	fn func(req OrientationPersistRequest) (OrientationSnapshot, error)
}

func (s *stubOrientation) Persist(_ context.Context, req OrientationPersistRequest) (OrientationSnapshot, error) {
	if s.fn != nil {
		return s.fn(req)
	}
	return req.Snapshot, nil
}

type stubWallet struct {
	balance float64
	err     error
}

func (s *stubWallet) Balance(context.Context, string) (float64, error) {
	return s.balance, s.err
}

type stubMaterials struct {
	err error
}

func (s *stubMaterials) DisplayName(_ context.Context, materialID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if materialID == "" {
		return "", errors.New("unknown material")
	}
	return "Material " + materialID, nil
}

type stubDrafts struct {
	mu     sync.Mutex
	drafts map[string]Draft
	saves  int
	clears int
}

func newStubDrafts() *stubDrafts {
	return &stubDrafts{drafts: map[string]Draft{}}
}

func (s *stubDrafts) Save(_ context.Context, sessionID string, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[sessionID] = draft
	s.saves++
	return nil
}

func (s *stubDrafts) Load(_ context.Context, sessionID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[sessionID]
	if !ok {
		return nil, nil
	}
	copied := draft
	return &copied, nil
}

func (s *stubDrafts) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	s.clears++
	return nil
}

func (s *stubDrafts) stored(sessionID string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[sessionID]
	return draft, ok
}

type testEnv struct {
	slicer   *stubSlicer
	pricer   *stubPricer
	checkout *stubCheckout
	orient   *stubOrientation
	wallet   *stubWallet
	drafts   *stubDrafts
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *testEnv) {
	t.Helper()

	env := &testEnv{
		slicer:   &stubSlicer{},
		pricer:   &stubPricer{},
		checkout: &stubCheckout{},
		orient:   &stubOrientation{},
		wallet:   &stubWallet{},
		drafts:   newStubDrafts(),
	}
	orch, err := NewOrchestrator("sess-test", Deps{
		Slicer:          env.slicer,
		Pricer:          env.pricer,
		Checkout:        env.checkout,
		Orientation:     env.orient,
		Wallet:          env.wallet,
		Materials:       &stubMaterials{},
		Drafts:          env.drafts,
		SaveDebounce:    time.Millisecond,
		RepriceDebounce: time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(orch.Close)
	return orch, env
}

// addLockedFile pushes one file through upload, orient and lock.
func addLockedFile(t *testing.T, orch *Orchestrator, id string) {
	t.Helper()

	require.NoError(t, orch.AddUpload(Upload{ID: id, Filename: id + ".stl", Size: 1024}, DefaultSettings("pla-standard")))
	require.NoError(t, orch.SetCurrentlyOrienting(&id))
	require.NoError(t, orch.LockOrientation(context.Background()))
}

// prepareAll runs a full successful preparation batch.
func prepareAll(t *testing.T, orch *Orchestrator) {
	t.Helper()

	report, err := orch.PrepareFiles(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err)
}
