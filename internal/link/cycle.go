package link

import (
	"errors"
	"fmt"
)

// ErrUnknownBillingCycle is returned for billing cycles outside the known set.
var ErrUnknownBillingCycle = errors.New("link: unknown billing cycle")

var cycleMonths = map[string]int{
	"Monthly":       1,
	"Quarterly":     3,
	"Semi-Annually": 6,
	"Annually":      12,
	"Biennially":    24,
	"Triennially":   36,
}

// ExpiryLengthForCycle maps a host billing cycle onto a renewal length in
// months. Unrecognised cycles are an error rather than a silent default so a
// subscription can never be created with the wrong term.
func ExpiryLengthForCycle(cycle string) (int, error) {
	months, ok := cycleMonths[cycle]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBillingCycle, cycle)
	}
	return months, nil
}
