package costing

import "github.com/shopspring/decimal"

// Product is the priced view of a catalog item the engine needs.
type Product struct {
	ID        string
	Name      string
	Unit      string
	UnitPrice decimal.Decimal
	Active    bool
}

// ProductLookup resolves a product by identifier from data the caller has
// already fetched.
type ProductLookup func(id string) (Product, bool)

// LookupFromSlice builds a ProductLookup over an in-memory product list.
func LookupFromSlice(products []Product) ProductLookup {
	index := make(map[string]Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return func(id string) (Product, bool) {
		p, ok := index[id]
		return p, ok
	}
}

type Line struct {
	ProductID string
	Quantity  decimal.Decimal
	Unit      string
	Note      string
}

type Recipe struct {
	Name               string
	Lines              []Line
	PortionCount       int
	DesiredMargin      *decimal.Decimal
	SuggestedSalePrice *decimal.Decimal
}

type LineCost struct {
	Index       int             `json:"index"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	PricedUnit  string          `json:"priced_unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Cost        decimal.Decimal `json:"cost"`
}

type Warning struct {
	Code      string `json:"code"`
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
	Message   string `json:"message"`
}

// Breakdown is derived from a Recipe and current product prices. It is never
// patched incrementally: recompute it instead.
type Breakdown struct {
	TotalCost          decimal.Decimal  `json:"total_cost"`
	CostPerPortion     decimal.Decimal  `json:"cost_per_portion"`
	EffectiveSalePrice *decimal.Decimal `json:"effective_sale_price"`
	GrossMargin        *decimal.Decimal `json:"gross_margin"`
	CMVPercentage      *decimal.Decimal `json:"cmv_percentage"`
	Classification     Label            `json:"classification"`
	Lines              []LineCost       `json:"lines"`
	Warnings           []Warning        `json:"warnings,omitempty"`
}
