package enums

import "fmt"

// AccountTier is the venue's subscription tier as reported by the processor.
type AccountTier string

const (
	AccountTierFree    AccountTier = "free"
	AccountTierStarter AccountTier = "starter"
	AccountTierPro     AccountTier = "pro"
)

var validAccountTiers = []AccountTier{
	AccountTierFree,
	AccountTierStarter,
	AccountTierPro,
}

// String implements fmt.Stringer.
func (a AccountTier) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountTier.
func (a AccountTier) IsValid() bool {
	for _, candidate := range validAccountTiers {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountTier converts raw input into an AccountTier.
func ParseAccountTier(value string) (AccountTier, error) {
	for _, candidate := range validAccountTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account tier %q", value)
}
