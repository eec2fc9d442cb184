package pipeline

import (
	"context"
	"testing"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullAddress() types.Address {
	return types.Address{
		Line1:    "1 Main St",
		City:     "Melbourne",
		State:    "VIC",
		Postcode: "3000",
		Country:  "AU",
	}
}

// pricedPipeline drives a single file all the way to a computed price.
func pricedPipeline(t *testing.T, orch *Orchestrator) {
	t.Helper()

	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)
	orch.SetAddress(fullAddress())
	_, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)
}

func TestCheckoutRequiresPriceAndAddress(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	_, err := orch.Checkout(context.Background(), CheckoutParams{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))

	_, err = orch.ComputePrice(context.Background())
	require.NoError(t, err)

	_, err = orch.Checkout(context.Background(), CheckoutParams{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
	assert.Empty(t, env.checkout.requests())
}

func TestCheckoutCardOnlyWithoutCredit(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	pricedPipeline(t, orch)

	result, err := orch.Checkout(context.Background(), CheckoutParams{})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", result.OrderID)

	reqs := env.checkout.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, PayCardOnly, reqs[0].PaymentPreference)
	assert.Zero(t, reqs[0].CreditRequested)
	assert.Equal(t, fullAddress(), reqs[0].Address)
}

func TestCheckoutClampsCreditToWalletBalance(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.wallet.balance = 20
	pricedPipeline(t, orch)

	_, err := orch.Checkout(context.Background(), CheckoutParams{CreditRequested: 100})
	require.NoError(t, err)

	reqs := env.checkout.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 20.0, reqs[0].CreditRequested)
	assert.Equal(t, PaySplit, reqs[0].PaymentPreference)
}

func TestCheckoutCreditOnlyWhenBalanceCoversTotal(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.wallet.balance = 500
	pricedPipeline(t, orch)

	_, err := orch.Checkout(context.Background(), CheckoutParams{CreditRequested: 500})
	require.NoError(t, err)

	reqs := env.checkout.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, PayCreditOnly, reqs[0].PaymentPreference)
	// Credit is capped at the order total, never the full balance.
	assert.Equal(t, 55.0, reqs[0].CreditRequested)
}

func TestCheckoutClearsDraftOnSuccess(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	pricedPipeline(t, orch)
	require.NoError(t, orch.SaveDraft(context.Background()))
	_, hadDraft := env.drafts.stored("sess-test")
	require.True(t, hadDraft)

	_, err := orch.Checkout(context.Background(), CheckoutParams{})
	require.NoError(t, err)

	_, stillThere := env.drafts.stored("sess-test")
	assert.False(t, stillThere)

	// In-memory state survives for the confirmation screen.
	assert.NotEmpty(t, orch.Snapshot().Files)
}

func TestCheckoutGatewayFailureSurfaced(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	pricedPipeline(t, orch)
	env.checkout.fn = func(CheckoutRequest) (CheckoutResult, error) {
		return CheckoutResult{}, assert.AnError
	}

	_, err := orch.Checkout(context.Background(), CheckoutParams{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	// Draft untouched so the user can retry after a gateway blip.
	require.NoError(t, orch.SaveDraft(context.Background()))
	_, stillThere := env.drafts.stored("sess-test")
	assert.True(t, stillThere)
}

func TestCheckoutWalletFailureBlocksSubmission(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.wallet.err = assert.AnError
	pricedPipeline(t, orch)

	_, err := orch.Checkout(context.Background(), CheckoutParams{CreditRequested: 10})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, env.checkout.requests())
}
