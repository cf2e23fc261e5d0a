package models

// DefaultLowStockThreshold is used for products stored without a threshold.
const DefaultLowStockThreshold = 5

// Product is the catalog entity consumed by the order core. Prices are in minor units.
type Product struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	OfferPrice        int64  `json:"offerPrice"`
	Stock             int    `json:"stock"`
	LowStockThreshold int    `json:"lowStockThreshold"`
	InStock           bool   `json:"inStock"`
}

// SignalKind tells which stock alert a ledger write raised.
type SignalKind int

const (
	SignalLowStock SignalKind = iota + 1
	SignalOutOfStock
)

func (k SignalKind) String() string {
	switch k {
	case SignalLowStock:
		return "low_stock"
	case SignalOutOfStock:
		return "out_of_stock"
	}
	return "unknown"
}

// StockSignal is raised by a stock write that crossed an alert boundary.
type StockSignal struct {
	Kind      SignalKind
	ProductID string
	Name      string
	Stock     int
	Threshold int
}

// StockChange is the outcome of an atomic stock write.
type StockChange struct {
	Product
	Previous int
}
