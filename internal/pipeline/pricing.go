package pipeline

import (
	"context"
	"time"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/money"
	"github.com/printforge/quickorder-backend/pkg/types"
)

// ComputePrice assembles the item payload from current state, asks the
// pricing service for a quote, and stores the normalized result. The
// quote only sticks if no mutation happened while the call was in
// flight; otherwise the result is discarded with a state conflict.
func (o *Orchestrator) ComputePrice(ctx context.Context) (*PriceData, error) {
	o.mu.Lock()
	if err := o.pricePreconditionsLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	revAtCall := o.st.rev
	location := QuoteLocation{State: o.st.address.State, Postcode: o.st.address.Postcode}
	o.mu.Unlock()

	items, err := o.assembleItems(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := o.deps.Pricer.Quote(ctx, QuoteRequest{Items: items, Location: location})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute price")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.st.rev != revAtCall {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pipeline changed while pricing")
	}

	price := normalizeQuote(resp, items)
	o.st.price = &price
	if o.isStepUnlockedLocked(StepPrice) && stepIndex(o.st.step) < stepIndex(StepPrice) {
		o.st.step = StepPrice
	}
	o.deps.Metrics.IncPriceComputation("ok")
	o.scheduleDraftSaveLocked()

	result := price
	result.Items = append([]PriceItem(nil), price.Items...)
	return &result, nil
}

// pricePreconditionsLocked enforces the gate between configure and
// price: every file locked, every file sliced, every fallback accepted.
func (o *Orchestrator) pricePreconditionsLocked() error {
	if len(o.st.uploads) == 0 {
		return pkgerrors.New(pkgerrors.CodePrecondition, "no files uploaded")
	}
	for _, u := range o.st.uploads {
		if !o.st.locked[u.ID] {
			return pkgerrors.New(pkgerrors.CodePrecondition,
				"lock orientation for every file before pricing")
		}
	}
	for _, u := range o.st.uploads {
		if _, ok := o.st.metrics[u.ID]; !ok {
			return pkgerrors.New(pkgerrors.CodePrecondition,
				"prepare files before pricing")
		}
	}
	if pending := o.unacceptedFallbacksLocked(); len(pending) > 0 {
		return pkgerrors.New(pkgerrors.CodePrecondition,
			"accept or resolve fallback estimates before pricing").
			WithDetails(map[string]any{"file_ids": pending})
	}
	return nil
}

// assembleItems builds the per-file payload shared by pricing and
// checkout. Material names are resolved through the catalog; a resolver
// failure aborts the whole call rather than quoting with a blank name.
func (o *Orchestrator) assembleItems(ctx context.Context) ([]QuoteItem, error) {
	o.mu.Lock()
	type draft struct {
		upload      Upload
		settings    FileSettings
		orientation OrientationSnapshot
		metrics     FileMetrics
		accepted    bool
	}
	rows := make([]draft, 0, len(o.st.uploads))
	for _, u := range o.st.uploads {
		row := draft{
			upload:      u,
			settings:    o.st.settings[u.ID],
			orientation: o.st.orientation[u.ID],
			metrics:     o.st.metrics[u.ID],
		}
		_, row.accepted = o.st.acceptedFallbacks[u.ID]
		rows = append(rows, row)
	}
	o.mu.Unlock()

	names := map[string]string{}
	items := make([]QuoteItem, 0, len(rows))
	for _, row := range rows {
		name, ok := names[row.settings.MaterialID]
		if !ok {
			resolved, err := o.deps.Materials.DisplayName(ctx, row.settings.MaterialID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve material").
					WithDetails(map[string]any{"material_id": row.settings.MaterialID})
			}
			name = resolved
			names[row.settings.MaterialID] = name
		}
		items = append(items, QuoteItem{
			FileID:       row.upload.ID,
			Filename:     row.upload.Filename,
			MaterialID:   row.settings.MaterialID,
			MaterialName: name,
			LayerHeight:  row.settings.LayerHeight,
			Infill:       row.settings.Infill,
			Quantity:     row.settings.Quantity,
			Orientation:  row.orientation,
			Supports: SupportsInfo{
				Enabled:          row.settings.SupportsEnabled && !row.metrics.Fallback,
				AcceptedFallback: row.accepted,
			},
			Metrics: row.metrics,
		})
	}
	return items, nil
}

// normalizeQuote converts the raw service response into stored price
// data: every amount rounded to cents, the discount derived from the
// subtotals when the service omits it.
func normalizeQuote(resp QuoteResponse, items []QuoteItem) PriceData {
	price := PriceData{
		OriginalSubtotal: money.Round2(resp.OriginalSubtotal),
		Subtotal:         money.Round2(resp.Subtotal),
		DiscountType:     resp.DiscountType,
		DiscountValue:    resp.DiscountValue,
		TaxAmount:        money.Round2(resp.TaxAmount),
		TaxRate:          resp.TaxRate,
		Total:            money.Round2(resp.Total),
	}

	if resp.DiscountAmount != nil {
		price.DiscountAmount = money.Round2(*resp.DiscountAmount)
	} else {
		price.DiscountAmount = money.NonNegative(money.Sub2(resp.OriginalSubtotal, resp.Subtotal))
	}

	if resp.Shipping != nil {
		quote := ShippingQuote{
			Code:            resp.Shipping.Code,
			Label:           resp.Shipping.Label,
			BaseAmount:      money.Round2(resp.Shipping.BaseAmount),
			Amount:          money.Round2(resp.Shipping.Amount),
			RemoteSurcharge: resp.Shipping.RemoteSurcharge,
			RemoteApplied:   resp.Shipping.RemoteApplied,
		}
		price.Shipping = quote.Amount
		price.ShippingQuote = &quote
	}

	breakdown := map[string]QuoteItemBreakdown{}
	for _, line := range resp.Items {
		breakdown[line.FileID] = line
	}
	for _, item := range items {
		pi := PriceItem{
			FileID:   item.FileID,
			Filename: item.Filename,
			Quantity: item.Quantity,
		}
		if line, ok := breakdown[item.FileID]; ok {
			pi.UnitPrice = money.Round2(line.UnitPrice)
			pi.LineTotal = money.Round2(line.LineTotal)
		}
		price.Items = append(price.Items, pi)
	}
	return price
}

// SetAddress stores the delivery address. When a price is already on
// screen and the new address carries a shipping-relevant location, a
// debounced background reprice keeps the total honest without a click.
func (o *Orchestrator) SetAddress(addr types.Address) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.st.address == addr {
		return
	}
	o.st.address = addr
	o.scheduleDraftSaveLocked()

	if o.st.price != nil && addr.HasShippingLocation() {
		o.scheduleRepriceLocked()
	}
}

// Address returns the stored delivery address.
func (o *Orchestrator) Address() types.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.st.address
}

// scheduleRepriceLocked resets the auto-reprice timer. The eventual
// recompute runs off the request path; failures are logged and the
// stale price stays until the user retries explicitly.
func (o *Orchestrator) scheduleRepriceLocked() {
	if o.closed {
		return
	}
	if o.repriceTimer != nil {
		o.repriceTimer.Stop()
	}
	o.repriceTimer = time.AfterFunc(o.deps.RepriceDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundCallTimeout)
		defer cancel()
		if _, err := o.ComputePrice(ctx); err != nil {
			o.logError(ctx, "background reprice failed", err)
		}
	})
}
