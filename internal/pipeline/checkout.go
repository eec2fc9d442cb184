package pipeline

import (
	"context"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/money"
)

// CheckoutParams carries the user's payment choices for submission.
type CheckoutParams struct {
	CreditRequested float64 `json:"credit_requested_amount"`
}

// Checkout submits the order. It requires a current price and a
// complete delivery address, clamps the requested store credit to the
// wallet balance, and picks the payment preference from how much of the
// total the credit covers. On success the saved draft is cleared; the
// in-memory pipeline is kept so the confirmation screen can render it.
func (o *Orchestrator) Checkout(ctx context.Context, params CheckoutParams) (CheckoutResult, error) {
	o.mu.Lock()
	if err := o.pricePreconditionsLocked(); err != nil {
		o.mu.Unlock()
		return CheckoutResult{}, err
	}
	if o.st.price == nil {
		o.mu.Unlock()
		return CheckoutResult{}, pkgerrors.New(pkgerrors.CodePrecondition,
			"compute a price before checking out")
	}
	if !o.st.address.Complete() {
		o.mu.Unlock()
		return CheckoutResult{}, pkgerrors.New(pkgerrors.CodePrecondition,
			"complete the delivery address before checking out")
	}
	total := o.st.price.Total
	address := o.st.address
	revAtCall := o.st.rev
	o.mu.Unlock()

	credit := 0.0
	if params.CreditRequested > 0 {
		balance, err := o.walletBalance(ctx)
		if err != nil {
			return CheckoutResult{}, err
		}
		credit = money.Min(money.NonNegative(params.CreditRequested), balance)
	}

	preference := PayCardOnly
	switch {
	case credit > 0 && money.Cmp(credit, total) >= 0:
		credit = total
		preference = PayCreditOnly
	case credit > 0:
		preference = PaySplit
	}

	items, err := o.assembleItems(ctx)
	if err != nil {
		return CheckoutResult{}, err
	}

	result, err := o.deps.Checkout.Submit(ctx, CheckoutRequest{
		Items:             items,
		Address:           address,
		CreditRequested:   credit,
		PaymentPreference: preference,
	})
	if err != nil {
		return CheckoutResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit order")
	}

	o.mu.Lock()
	stale := o.st.rev != revAtCall
	o.mu.Unlock()
	if stale {
		// The order went through against the submitted snapshot; the
		// local mutation raced it. Surface the result but flag the race.
		o.logWarn(ctx, "pipeline mutated during checkout submission")
	}

	o.deps.Metrics.IncCheckout("ok")
	o.clearDraft(ctx)

	return result, nil
}

// walletBalance reads the session's store credit; a missing wallet
// service means no credit is available.
func (o *Orchestrator) walletBalance(ctx context.Context) (float64, error) {
	if o.deps.Wallet == nil {
		return 0, nil
	}
	balance, err := o.deps.Wallet.Balance(ctx, o.sessionID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read wallet balance")
	}
	return money.NonNegative(balance), nil
}

// WalletBalance exposes the clamped store-credit balance for display.
func (o *Orchestrator) WalletBalance(ctx context.Context) (float64, error) {
	return o.walletBalance(ctx)
}
