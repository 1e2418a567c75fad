package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidCoin is returned when a coin string or JSON object cannot be parsed.
	ErrInvalidCoin = errors.New("types: invalid coin")

	denomPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{0,127}$`)
	coinPattern  = regexp.MustCompile(`^([0-9]+)\s*([a-zA-Z][a-zA-Z0-9/:._-]{0,127})$`)
)

// ValidateDenom reports whether denom is a well-formed denomination.
func ValidateDenom(denom string) error {
	if !denomPattern.MatchString(denom) {
		return fmt.Errorf("%w: denom %q", ErrInvalidCoin, denom)
	}
	return nil
}

// Coin is a single-denomination amount. Amounts are unsigned 256-bit
// integers and are encoded as decimal strings on the wire.
type Coin struct {
	Denom  string
	Amount *uint256.Int
}

// NewCoin builds a coin from a uint64 amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: uint256.NewInt(amount)}
}

// ParseCoin parses the "<amount><denom>" form, e.g. "100ucmst".
func ParseCoin(raw string) (Coin, error) {
	match := coinPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidCoin, raw)
	}
	amount, err := uint256.FromDecimal(match[1])
	if err != nil {
		return Coin{}, fmt.Errorf("%w: amount %q: %v", ErrInvalidCoin, match[1], err)
	}
	return Coin{Denom: match[2], Amount: amount}, nil
}

// AmountOrZero returns the amount, treating a nil amount as zero.
func (c Coin) AmountOrZero() *uint256.Int {
	if c.Amount == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(c.Amount)
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool {
	return c.Amount == nil || c.Amount.IsZero()
}

func (c Coin) String() string {
	return c.AmountOrZero().Dec() + c.Denom
}

type coinJSON struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinJSON{Denom: c.Denom, Amount: c.AmountOrZero().Dec()})
}

func (c *Coin) UnmarshalJSON(data []byte) error {
	var raw coinJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCoin, err)
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return err
	}
	c.Denom = strings.TrimSpace(raw.Denom)
	c.Amount = amount
	return nil
}

// ParseAmount parses a base-10 amount string.
func ParseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidCoin)
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidCoin, raw, err)
	}
	return amount, nil
}

// Coins is an ordered list of coins as attached to a call.
type Coins []Coin

// ParseCoins parses a comma separated list such as "100ucmst,5uatom".
func ParseCoins(raw string) (Coins, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Coins{}, nil
	}
	parts := strings.Split(raw, ",")
	out := make(Coins, 0, len(parts))
	for _, part := range parts {
		coin, err := ParseCoin(part)
		if err != nil {
			return nil, err
		}
		out = append(out, coin)
	}
	return out, nil
}

// Validate checks denominations and rejects duplicates.
func (cs Coins) Validate() error {
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		if err := ValidateDenom(c.Denom); err != nil {
			return err
		}
		if _, dup := seen[c.Denom]; dup {
			return fmt.Errorf("%w: duplicate denom %q", ErrInvalidCoin, c.Denom)
		}
		seen[c.Denom] = struct{}{}
	}
	return nil
}

// AmountOf sums every entry of denom.
func (cs Coins) AmountOf(denom string) *uint256.Int {
	total := new(uint256.Int)
	for _, c := range cs {
		if c.Denom == denom && c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

// Sorted returns a copy ordered by denomination.
func (cs Coins) Sorted() Coins {
	out := append(Coins(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
