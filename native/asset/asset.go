package asset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"yieldplus/native/common"
)

const (
	// MaxAmount bounds every asset quantity held in state.
	MaxAmount uint64 = 1<<62 - 1
	// MaxPrecision is the largest number of decimals a symbol may carry.
	MaxPrecision  uint8 = 18
	maxCodeLength       = 7
)

// Symbol identifies a currency by code and decimal precision, e.g. "4,EOS".
type Symbol struct {
	Code      string
	Precision uint8
}

// NewSymbol builds and validates a symbol.
func NewSymbol(code string, precision uint8) (Symbol, error) {
	sym := Symbol{Code: strings.TrimSpace(code), Precision: precision}
	if err := sym.Validate(); err != nil {
		return Symbol{}, err
	}
	return sym, nil
}

// MustSymbol is NewSymbol for constants and tests.
func MustSymbol(code string, precision uint8) Symbol {
	sym, err := NewSymbol(code, precision)
	if err != nil {
		panic(err)
	}
	return sym
}

// ParseSymbol accepts the "precision,CODE" notation.
func ParseSymbol(raw string) (Symbol, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ",", 2)
	if len(parts) != 2 {
		return Symbol{}, common.Invalid("symbol %q must be formatted as precision,CODE", raw)
	}
	precision, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
	if err != nil {
		return Symbol{}, common.Invalid("symbol %q has invalid precision", raw)
	}
	return NewSymbol(parts[1], uint8(precision))
}

// Validate checks the code is 1-7 upper-case letters and the precision is
// within range.
func (s Symbol) Validate() error {
	if len(s.Code) == 0 || len(s.Code) > maxCodeLength {
		return common.Invalid("symbol code %q must be 1-%d characters", s.Code, maxCodeLength)
	}
	for _, r := range s.Code {
		if r < 'A' || r > 'Z' {
			return common.Invalid("symbol code %q must be upper-case letters", s.Code)
		}
	}
	if s.Precision > MaxPrecision {
		return common.Invalid("symbol %s precision %d exceeds %d", s.Code, s.Precision, MaxPrecision)
	}
	return nil
}

// IsZero reports whether the symbol is unset.
func (s Symbol) IsZero() bool { return s.Code == "" }

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// Asset is an amount in minor units of a symbol.
type Asset struct {
	Amount uint64
	Symbol Symbol
}

// New builds an asset, rejecting amounts above MaxAmount.
func New(amount uint64, sym Symbol) (Asset, error) {
	if amount > MaxAmount {
		return Asset{}, fmt.Errorf("%w: amount %d exceeds maximum", common.ErrOverflow, amount)
	}
	return Asset{Amount: amount, Symbol: sym}, nil
}

// Zero returns an empty quantity of sym.
func Zero(sym Symbol) Asset { return Asset{Symbol: sym} }

// Parse reads the "1.0000 EOS" notation. The number of decimals written sets
// the precision.
func Parse(raw string) (Asset, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return Asset{}, common.Invalid("asset %q must be formatted as AMOUNT CODE", raw)
	}
	number := fields[0]
	whole, frac, hasDot := strings.Cut(number, ".")
	if hasDot && frac == "" {
		return Asset{}, common.Invalid("asset %q has an empty fraction", raw)
	}
	sym, err := NewSymbol(fields[1], uint8(len(frac)))
	if err != nil {
		return Asset{}, err
	}
	digits := whole + frac
	if digits == "" || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return Asset{}, common.Invalid("asset %q has an invalid amount", raw)
	}
	amount, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return Asset{}, common.Invalid("asset %q has an invalid amount", raw)
	}
	return New(amount, sym)
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) Asset {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Asset) String() string {
	digits := strconv.FormatUint(a.Amount, 10)
	p := int(a.Symbol.Precision)
	if p == 0 {
		return digits + " " + a.Symbol.Code
	}
	if len(digits) <= p {
		digits = strings.Repeat("0", p-len(digits)+1) + digits
	}
	cut := len(digits) - p
	return digits[:cut] + "." + digits[cut:] + " " + a.Symbol.Code
}

// IsZero reports whether the amount is zero.
func (a Asset) IsZero() bool { return a.Amount == 0 }

func (a Asset) sameSymbol(b Asset) error {
	if a.Symbol != b.Symbol {
		return common.Invalid("symbol mismatch %s != %s", a.Symbol, b.Symbol)
	}
	return nil
}

// Add returns a+b, failing on symbol mismatch or when the sum leaves the
// valid range.
func (a Asset) Add(b Asset) (Asset, error) {
	if err := a.sameSymbol(b); err != nil {
		return Asset{}, err
	}
	if a.Amount > math.MaxUint64-b.Amount {
		return Asset{}, fmt.Errorf("%w: %s + %s", common.ErrOverflow, a, b)
	}
	return New(a.Amount+b.Amount, a.Symbol)
}

// Sub returns a-b and never goes negative.
func (a Asset) Sub(b Asset) (Asset, error) {
	if err := a.sameSymbol(b); err != nil {
		return Asset{}, err
	}
	if b.Amount > a.Amount {
		return Asset{}, fmt.Errorf("%w: %s - %s underflows", common.ErrOverflow, a, b)
	}
	return Asset{Amount: a.Amount - b.Amount, Symbol: a.Symbol}, nil
}

// Cmp compares two quantities of the same symbol.
func (a Asset) Cmp(b Asset) int {
	switch {
	case a.Amount < b.Amount:
		return -1
	case a.Amount > b.Amount:
		return 1
	default:
		return 0
	}
}

// ExtendedSymbol pins a symbol to the token contract that issues it.
type ExtendedSymbol struct {
	Symbol   Symbol
	Contract string
}

func (e ExtendedSymbol) String() string {
	return e.Symbol.String() + "@" + e.Contract
}

// Validate checks both halves are set.
func (e ExtendedSymbol) Validate() error {
	if err := e.Symbol.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Contract) == "" {
		return common.Invalid("token contract required for %s", e.Symbol.Code)
	}
	return nil
}

// IsZero reports whether the extended symbol is unset.
func (e ExtendedSymbol) IsZero() bool { return e.Symbol.IsZero() && e.Contract == "" }

// ExtendedAsset is a quantity issued by a specific token contract.
type ExtendedAsset struct {
	Quantity Asset
	Contract string
}

// Extended returns the extended symbol of the quantity.
func (e ExtendedAsset) Extended() ExtendedSymbol {
	return ExtendedSymbol{Symbol: e.Quantity.Symbol, Contract: e.Contract}
}

func (e ExtendedAsset) String() string {
	return e.Quantity.String() + "@" + e.Contract
}

// ParseExtendedSymbol parses "4,EOS@eosio.token".
func ParseExtendedSymbol(raw string) (ExtendedSymbol, error) {
	symPart, contract, ok := strings.Cut(strings.TrimSpace(raw), "@")
	if !ok {
		return ExtendedSymbol{}, common.Invalid("extended symbol %q must be precision,CODE@contract", raw)
	}
	sym, err := ParseSymbol(symPart)
	if err != nil {
		return ExtendedSymbol{}, err
	}
	out := ExtendedSymbol{Symbol: sym, Contract: strings.TrimSpace(contract)}
	return out, out.Validate()
}

// ParseExtendedAsset parses "1.0000 EOS@eosio.token".
func ParseExtendedAsset(raw string) (ExtendedAsset, error) {
	qtyPart, contract, ok := strings.Cut(strings.TrimSpace(raw), "@")
	if !ok || strings.TrimSpace(contract) == "" {
		return ExtendedAsset{}, common.Invalid("extended asset %q must be quantity@contract", raw)
	}
	qty, err := Parse(qtyPart)
	if err != nil {
		return ExtendedAsset{}, err
	}
	return ExtendedAsset{Quantity: qty, Contract: strings.TrimSpace(contract)}, nil
}
