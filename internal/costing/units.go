// Package costing computes recipe costs, per-portion costs and CMV percentages
// from ingredient lines and current product prices. It performs no I/O.
package costing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
	Count  Dimension = "count"
)

func (d Dimension) valid() bool {
	switch d {
	case Mass, Volume, Count:
		return true
	default:
		return false
	}
}

// Unit is one row of the conversion table. Factor is relative to the base unit
// of the dimension: kg for mass, L for volume, un for count.
type Unit struct {
	Symbol    string          `json:"symbol"`
	Label     string          `json:"label,omitempty"`
	Dimension Dimension       `json:"dimension"`
	Factor    decimal.Decimal `json:"factor"`
}

func DefaultUnits() []Unit {
	return []Unit{
		{Symbol: "g", Label: "Gramas (g)", Dimension: Mass, Factor: decimal.RequireFromString("0.001")},
		{Symbol: "kg", Label: "Quilogramas (kg)", Dimension: Mass, Factor: decimal.NewFromInt(1)},
		{Symbol: "t", Label: "Toneladas (t)", Dimension: Mass, Factor: decimal.NewFromInt(1000)},
		{Symbol: "ml", Label: "Mililitros (ml)", Dimension: Volume, Factor: decimal.RequireFromString("0.001")},
		{Symbol: "L", Label: "Litros (L)", Dimension: Volume, Factor: decimal.NewFromInt(1)},
		{Symbol: "un", Label: "Unidade (un)", Dimension: Count, Factor: decimal.NewFromInt(1)},
		{Symbol: "dz", Label: "Dúzia (dz)", Dimension: Count, Factor: decimal.NewFromInt(12)},
		{Symbol: "cx", Label: "Caixa (cx)", Dimension: Count, Factor: decimal.NewFromInt(24)},
		{Symbol: "pct", Label: "Pacote (pct)", Dimension: Count, Factor: decimal.NewFromInt(1)},
		{Symbol: "sc", Label: "Saco (sc)", Dimension: Count, Factor: decimal.NewFromInt(1)},
	}
}

// UnitTable is immutable once built and safe for concurrent use.
type UnitTable struct {
	units map[string]Unit
}

func NewUnitTable(units ...Unit) (*UnitTable, error) {
	t := &UnitTable{units: make(map[string]Unit, len(units))}
	for _, u := range units {
		if err := t.put(u); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// DefaultUnitTable returns the built-in table.
func DefaultUnitTable() *UnitTable {
	t, err := NewUnitTable(DefaultUnits()...)
	if err != nil {
		panic(err)
	}
	return t
}

// With returns a copy of t with the given units added or replaced.
func (t *UnitTable) With(units ...Unit) (*UnitTable, error) {
	next := &UnitTable{units: make(map[string]Unit, len(t.units)+len(units))}
	for k, v := range t.units {
		next.units[k] = v
	}
	for _, u := range units {
		if err := next.put(u); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (t *UnitTable) put(u Unit) error {
	symbol := strings.TrimSpace(u.Symbol)
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidUnit)
	}
	if !u.Dimension.valid() {
		return fmt.Errorf("%w: %s has unknown dimension %q", ErrInvalidUnit, symbol, u.Dimension)
	}
	if !u.Factor.IsPositive() {
		return fmt.Errorf("%w: %s factor must be positive", ErrInvalidUnit, symbol)
	}
	u.Symbol = symbol
	t.units[normalizeSymbol(symbol)] = u
	return nil
}

func (t *UnitTable) Lookup(symbol string) (Unit, error) {
	u, ok := t.units[normalizeSymbol(symbol)]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, strings.TrimSpace(symbol))
	}
	return u, nil
}

func (t *UnitTable) FactorToBase(symbol string) (decimal.Decimal, error) {
	u, err := t.Lookup(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Factor, nil
}

func (t *UnitTable) DimensionOf(symbol string) (Dimension, error) {
	u, err := t.Lookup(symbol)
	if err != nil {
		return "", err
	}
	return u.Dimension, nil
}

// Compatible reports whether quantities in from can be expressed in to.
func (t *UnitTable) Compatible(from, to string) error {
	src, err := t.Lookup(from)
	if err != nil {
		return err
	}
	dst, err := t.Lookup(to)
	if err != nil {
		return err
	}
	if src.Dimension != dst.Dimension {
		return fmt.Errorf("%w: %s (%s) to %s (%s)", ErrIncompatibleDimension, src.Symbol, src.Dimension, dst.Symbol, dst.Dimension)
	}
	return nil
}

// Convert expresses quantity (in from) in the to unit.
func (t *UnitTable) Convert(quantity decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if err := t.Compatible(from, to); err != nil {
		return decimal.Zero, err
	}
	src, _ := t.Lookup(from)
	dst, _ := t.Lookup(to)
	if src.Factor.Equal(dst.Factor) {
		return quantity, nil
	}
	return quantity.Mul(src.Factor).Div(dst.Factor), nil
}

// Units lists the table grouped by dimension, smallest factor first.
func (t *UnitTable) Units() []Unit {
	out := make([]Unit, 0, len(t.units))
	for _, u := range t.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dimension != out[j].Dimension {
			return dimensionOrder(out[i].Dimension) < dimensionOrder(out[j].Dimension)
		}
		if c := out[i].Factor.Cmp(out[j].Factor); c != 0 {
			return c < 0
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func dimensionOrder(d Dimension) int {
	switch d {
	case Mass:
		return 0
	case Volume:
		return 1
	default:
		return 2
	}
}

func sameUnit(a, b string) bool {
	return normalizeSymbol(a) == normalizeSymbol(b)
}

func normalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
