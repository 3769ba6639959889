package order

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePrice reads a currency-tagged total like "12$". The marker is
// stripped wherever it appears and surrounding whitespace is ignored.
// Malformed values report ok=false and are skipped by callers, never
// treated as errors.
func ParsePrice(totalPrice string) (int, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(totalPrice, "$", ""))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatPrice renders a total back into the store's "<n>$" form.
func FormatPrice(n int) string {
	return fmt.Sprintf("%d$", n)
}
