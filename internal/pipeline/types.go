package pipeline

import (
	"context"
	"time"

	"github.com/printforge/quickorder-backend/pkg/types"
)

// Upload identifies a model file accepted by the upload service.
type Upload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// FileSettings holds the print configuration for one upload.
type FileSettings struct {
	MaterialID      string  `json:"material_id"`
	LayerHeight     float64 `json:"layer_height"`
	Infill          int     `json:"infill"`
	Quantity        int     `json:"quantity"`
	SupportsEnabled bool    `json:"supports_enabled"`
}

// SettingsPatch carries a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	MaterialID      *string  `json:"material_id,omitempty"`
	LayerHeight     *float64 `json:"layer_height,omitempty"`
	Infill          *int     `json:"infill,omitempty"`
	Quantity        *int     `json:"quantity,omitempty"`
	SupportsEnabled *bool    `json:"supports_enabled,omitempty"`
}

// OrientationSnapshot mirrors the viewer's live orientation buffer for a
// file. The persisted subset is quaternion/position/support metrics; the
// helper and gizmo fields are cosmetic viewer state carried along so a
// resumed session restores the editor exactly.
type OrientationSnapshot struct {
	Quaternion    [4]float64 `json:"quaternion"`
	Position      [3]float64 `json:"position"`
	AutoOriented  bool       `json:"auto_oriented"`
	SupportVolume *float64   `json:"support_volume,omitempty"`
	SupportWeight *float64   `json:"support_weight,omitempty"`

	HelpersVisible *bool   `json:"helpers_visible,omitempty"`
	GizmoEnabled   *bool   `json:"gizmo_enabled,omitempty"`
	GizmoMode      *string `json:"gizmo_mode,omitempty"`

	// Viewer-reported guard flags checked before a lock is granted.
	OutOfBounds       bool `json:"out_of_bounds,omitempty"`
	InteractionLocked bool `json:"interaction_locked,omitempty"`
}

// DefaultOrientation is the pose a file starts from before any editing.
func DefaultOrientation() OrientationSnapshot {
	return OrientationSnapshot{Quaternion: [4]float64{0, 0, 0, 1}}
}

// FileMetrics is the slicing result for one upload.
type FileMetrics struct {
	Grams    float64 `json:"grams"`
	TimeSec  int     `json:"time_sec"`
	Fallback bool    `json:"fallback"`
	Message  string  `json:"message,omitempty"`
}

// FileStatus tracks where a file is in the preparation workflow.
type FileStatus string

const (
	StatusIdle     FileStatus = "idle"
	StatusRunning  FileStatus = "running"
	StatusSuccess  FileStatus = "success"
	StatusFallback FileStatus = "fallback"
	StatusError    FileStatus = "error"
)

// FileState is the per-upload status plus optional message.
type FileState struct {
	Status  FileStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// PriceItem is the per-file line of a computed price breakdown.
type PriceItem struct {
	FileID    string  `json:"file_id"`
	Filename  string  `json:"filename"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// ShippingQuote is the shipping sub-result of a price computation.
type ShippingQuote struct {
	Code            string   `json:"code"`
	Label           string   `json:"label"`
	BaseAmount      float64  `json:"base_amount"`
	Amount          float64  `json:"amount"`
	RemoteSurcharge *float64 `json:"remote_surcharge,omitempty"`
	RemoteApplied   bool     `json:"remote_applied"`
}

// PriceData is the normalized quote for the whole pipeline. It is nil
// whenever any of its inputs has changed since computation.
type PriceData struct {
	OriginalSubtotal float64        `json:"original_subtotal"`
	Subtotal         float64        `json:"subtotal"`
	DiscountAmount   float64        `json:"discount_amount"`
	DiscountType     string         `json:"discount_type,omitempty"`
	DiscountValue    float64        `json:"discount_value,omitempty"`
	Shipping         float64        `json:"shipping"`
	ShippingQuote    *ShippingQuote `json:"shipping_quote,omitempty"`
	TaxAmount        float64        `json:"tax_amount"`
	TaxRate          *float64       `json:"tax_rate,omitempty"`
	Total            float64        `json:"total"`
	Items            []PriceItem    `json:"items"`
}

// PaymentPreference selects how the checkout service should split payment.
type PaymentPreference string

const (
	PayCreditOnly PaymentPreference = "CREDIT_ONLY"
	PaySplit      PaymentPreference = "SPLIT"
	PayCardOnly   PaymentPreference = "CARD_ONLY"
)

// SupportsInfo describes the supports decision sent with pricing/checkout items.
type SupportsInfo struct {
	Enabled          bool `json:"enabled"`
	AcceptedFallback bool `json:"accepted_fallback"`
}

// QuoteItem is one upload's payload for the pricing and checkout services.
type QuoteItem struct {
	FileID       string              `json:"file_id"`
	Filename     string              `json:"filename"`
	MaterialID   string              `json:"material_id"`
	MaterialName string              `json:"material_name"`
	LayerHeight  float64             `json:"layer_height"`
	Infill       int                 `json:"infill"`
	Quantity     int                 `json:"quantity"`
	Orientation  OrientationSnapshot `json:"orientation"`
	Supports     SupportsInfo        `json:"supports"`
	Metrics      FileMetrics         `json:"metrics"`
}

// QuoteLocation is the delivery location slice of the pricing request.
type QuoteLocation struct {
	State    string `json:"state"`
	Postcode string `json:"postcode"`
}

// QuoteRequest is the pricing service payload.
type QuoteRequest struct {
	Items    []QuoteItem   `json:"items"`
	Location QuoteLocation `json:"location"`
}

// QuoteResponse is the raw pricing service response before normalization.
type QuoteResponse struct {
	OriginalSubtotal float64              `json:"original_subtotal"`
	Subtotal         float64              `json:"subtotal"`
	DiscountAmount   *float64             `json:"discount_amount,omitempty"`
	DiscountType     string               `json:"discount_type,omitempty"`
	DiscountValue    float64              `json:"discount_value,omitempty"`
	Shipping         *QuoteShipping       `json:"shipping,omitempty"`
	TaxAmount        float64              `json:"tax_amount"`
	TaxRate          *float64             `json:"tax_rate,omitempty"`
	Total            float64              `json:"total"`
	Items            []QuoteItemBreakdown `json:"items,omitempty"`
}

// QuoteShipping is the shipping block of the pricing response.
type QuoteShipping struct {
	Code            string   `json:"code"`
	Label           string   `json:"label"`
	BaseAmount      float64  `json:"base_amount"`
	Amount          float64  `json:"amount"`
	RemoteSurcharge *float64 `json:"remote_surcharge,omitempty"`
	RemoteApplied   bool     `json:"remote_applied"`
}

// QuoteItemBreakdown is the per-item line of the pricing response.
type QuoteItemBreakdown struct {
	FileID    string  `json:"file_id"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// SliceRequest is the slicing service payload for one file.
type SliceRequest struct {
	FileID          string  `json:"file_id"`
	MaterialID      string  `json:"material_id"`
	LayerHeight     float64 `json:"layer_height"`
	Infill          int     `json:"infill"`
	SupportsEnabled bool    `json:"supports_enabled"`
}

// SliceResult is the slicing service response.
type SliceResult struct {
	Grams    float64 `json:"grams"`
	TimeSec  int     `json:"time_sec"`
	Fallback bool    `json:"fallback,omitempty"`
}

// CheckoutRequest is the checkout service payload.
type CheckoutRequest struct {
	Items             []QuoteItem       `json:"items"`
	Address           types.Address     `json:"address"`
	CreditRequested   float64           `json:"credit_requested_amount"`
	PaymentPreference PaymentPreference `json:"payment_preference"`
}

// CheckoutResult carries either an external redirect or an order id.
type CheckoutResult struct {
	RedirectURL string `json:"redirect_url,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

// OrientationPersistRequest is the orientation-persist call payload.
type OrientationPersistRequest struct {
	FileID   string              `json:"original_file_id"`
	Snapshot OrientationSnapshot `json:"snapshot"`
}

// Draft is the serializable subset of pipeline state. Price is excluded
// on purpose: a stored price is never trusted.
type Draft struct {
	Version     int                            `json:"version"`
	SavedAt     time.Time                      `json:"saved_at"`
	Step        Step                           `json:"step"`
	Uploads     []Upload                       `json:"uploads"`
	Settings    map[string]FileSettings        `json:"settings"`
	Orientation map[string]OrientationSnapshot `json:"orientation"`
	Locked      map[string]bool                `json:"locked"`
	Address     types.Address                  `json:"address"`
	Metrics     map[string]FileMetrics         `json:"metrics"`
}

// Slicer obtains grams/time metrics for a configured file.
type Slicer interface {
	Slice(ctx context.Context, req SliceRequest) (SliceResult, error)
}

// Pricer computes a quote for the assembled item list.
type Pricer interface {
	Quote(ctx context.Context, req QuoteRequest) (QuoteResponse, error)
}

// CheckoutGateway finalizes the order with the checkout service.
type CheckoutGateway interface {
	Submit(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
}

// OrientationPersister stores a locked orientation; the response is the
// authoritative (possibly normalized) snapshot.
type OrientationPersister interface {
	Persist(ctx context.Context, req OrientationPersistRequest) (OrientationSnapshot, error)
}

// WalletReader looks up the session's available store credit.
type WalletReader interface {
	Balance(ctx context.Context, sessionID string) (float64, error)
}

// MaterialResolver resolves material display names for item payloads.
type MaterialResolver interface {
	DisplayName(ctx context.Context, materialID string) (string, error)
}

// DraftStore persists and restores drafts keyed by session.
type DraftStore interface {
	Save(ctx context.Context, sessionID string, draft Draft) error
	Load(ctx context.Context, sessionID string) (*Draft, error)
	Clear(ctx context.Context, sessionID string) error
}
