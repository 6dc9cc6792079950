package domain

// Default values the extractor falls back to when a field cannot be found
// in the source text. The prompt instructs the model to emit these same
// values, so "Unknown Date" doubles as the placeholder the pipeline
// replaces with the wall clock.
const (
	DefaultStoreName     = "Unknown Store"
	DefaultCurrency      = "R$"
	DefaultDate          = "Unknown Date"
	DefaultPaymentMethod = "Unknown"
	DefaultCategory      = "Uncategorized"
)

// PurchaseInfo is the fixed schema every processed message resolves to.
type PurchaseInfo struct {
	StoreName     string     `json:"store_name"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Date          string     `json:"date"`
	PaymentMethod string     `json:"payment_method"`
	Category      string     `json:"category"`
	Items         []LineItem `json:"items,omitempty"`
	Tax           float64    `json:"tax,omitempty"`
	Discount      float64    `json:"discount,omitempty"`
}

// LineItem is a single purchased item on a receipt.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// NewPurchaseInfo returns a PurchaseInfo with every required field set to
// its default value.
func NewPurchaseInfo() PurchaseInfo {
	return PurchaseInfo{
		StoreName:     DefaultStoreName,
		Currency:      DefaultCurrency,
		Date:          DefaultDate,
		PaymentMethod: DefaultPaymentMethod,
		Category:      DefaultCategory,
	}
}
