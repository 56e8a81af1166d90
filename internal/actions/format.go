package actions

import (
	"fmt"
	"math/big"
	"strings"
)

// formatUnits renders a base-unit amount as a decimal string with the given
// number of decimals, trimming trailing zeros.
func formatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, divisor, new(big.Int))

	if frac.Sign() == 0 {
		return whole.String()
	}

	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return fmt.Sprintf("%s.%s", whole.String(), fracStr)
}

// parseUnits converts a decimal amount string into base units.
func parseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	parts := strings.SplitN(amount, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	combined := whole + frac
	value, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q cannot be negative", amount)
	}
	return value, nil
}
