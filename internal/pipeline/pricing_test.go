package pipeline

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePriceRejectsWithoutMetrics(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")

	_, err := orch.ComputePrice(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
	assert.Empty(t, env.pricer.requests(), "precondition failures never reach the service")
}

func TestComputePriceRejectsWithUnlockedFile(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	require.NoError(t, orch.AddUpload(Upload{ID: "f2", Filename: "b.stl"}, DefaultSettings("pla-standard")))

	_, err := orch.ComputePrice(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
	assert.Contains(t, err.Error(), "lock orientation")
	assert.Empty(t, env.pricer.requests(), "precondition failures never reach the service")
}

func TestComputePriceRejectsUnacceptedFallback(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")

	supports := true
	require.NoError(t, orch.UpdateSettings("f1", SettingsPatch{SupportsEnabled: &supports}))
	env.slicer.fn = func(req SliceRequest) (SliceResult, error) {
		if req.SupportsEnabled {
			return SliceResult{}, assert.AnError
		}
		return SliceResult{Grams: 40, TimeSec: 1800}, nil
	}
	report, err := orch.PrepareFiles(context.Background())
	require.NoError(t, err)
	require.True(t, report.SupportsWarning)

	_, err = orch.ComputePrice(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
	assert.Empty(t, env.pricer.requests())

	require.NoError(t, orch.AcceptFallback("f1"))
	_, err = orch.ComputePrice(context.Background())
	require.NoError(t, err)
	require.Len(t, env.pricer.requests(), 1)

	item := env.pricer.requests()[0].Items[0]
	assert.False(t, item.Supports.Enabled, "fallback estimate was computed without supports")
	assert.True(t, item.Supports.AcceptedFallback)
}

func TestComputePriceNormalizesQuote(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	surcharge := 5.0
	env.pricer.fn = func(req QuoteRequest) (QuoteResponse, error) {
		return QuoteResponse{
			OriginalSubtotal: 60.005,
			Subtotal:         50.004,
			TaxAmount:        5.0004,
			Total:            62.504,
			Shipping: &QuoteShipping{
				Code: "standard", Label: "Standard", BaseAmount: 7.5, Amount: 12.5,
				RemoteSurcharge: &surcharge, RemoteApplied: true,
			},
			Items: []QuoteItemBreakdown{{FileID: "f1", UnitPrice: 50.004, LineTotal: 50.004}},
		}, nil
	}

	price, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 60.01, price.OriginalSubtotal)
	assert.Equal(t, 50.0, price.Subtotal)
	assert.Equal(t, 10.0, price.DiscountAmount, "discount derived from subtotal delta")
	assert.Equal(t, 5.0, price.TaxAmount)
	assert.Equal(t, 62.5, price.Total)
	require.NotNil(t, price.ShippingQuote)
	assert.Equal(t, 12.5, price.Shipping)
	assert.True(t, price.ShippingQuote.RemoteApplied)
	require.Len(t, price.Items, 1)
	assert.Equal(t, 50.0, price.Items[0].UnitPrice)
	assert.Equal(t, "f1", price.Items[0].FileID)
}

func TestComputePriceDiscardedWhenInputsChangeMidFlight(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	env.pricer.fn = func(QuoteRequest) (QuoteResponse, error) {
		qty := 5
		require.NoError(t, orch.UpdateSettings("f1", SettingsPatch{Quantity: &qty}))
		return QuoteResponse{Subtotal: 50, Total: 55}, nil
	}

	_, err := orch.ComputePrice(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Nil(t, orch.Snapshot().Price)
}

func TestComputePriceAdvancesStep(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	_, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)

	view := orch.Snapshot()
	assert.Equal(t, StepPrice, view.Step)
	require.NotNil(t, view.Price)
}

func TestSetAddressTriggersDebouncedReprice(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	_, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)
	require.Len(t, env.pricer.requests(), 1)

	orch.SetAddress(types.Address{Line1: "1 Main St", City: "Springfield", State: "VIC", Postcode: "3000", Country: "AU"})

	require.Eventually(t, func() bool {
		return len(env.pricer.requests()) == 2
	}, time.Second, 5*time.Millisecond, "address change should reprice in the background")

	loc := env.pricer.requests()[1].Location
	assert.Equal(t, "VIC", loc.State)
	assert.Equal(t, "3000", loc.Postcode)
}

func TestSetAddressWithoutPriceDoesNotReprice(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")

	orch.SetAddress(types.Address{State: "VIC", Postcode: "3000"})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, env.pricer.requests())
}
