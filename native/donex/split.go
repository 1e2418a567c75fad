package donex

import "github.com/holiman/uint256"

// FeePercentage is the share of every donation routed to the owner.
const FeePercentage = 5

var hundred = uint256.NewInt(100)

// SplitDonation returns (net, fee) with fee = floor(amount*5/100). The
// product is computed as floor(a/100)*5 + floor((a%100)*5/100) so it cannot
// overflow for any 256-bit amount. net + fee always equals amount.
func SplitDonation(amount *uint256.Int) (net, fee *uint256.Int) {
	pct := uint256.NewInt(FeePercentage)
	quotient := new(uint256.Int).Div(amount, hundred)
	remainder := new(uint256.Int).Mod(amount, hundred)

	fee = new(uint256.Int).Mul(quotient, pct)
	tail := new(uint256.Int).Mul(remainder, pct)
	tail.Div(tail, hundred)
	fee.Add(fee, tail)

	net = new(uint256.Int).Sub(amount, fee)
	return net, fee
}
