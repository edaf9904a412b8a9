package models

const (
	TierShort  = "short"
	TierMedium = "medium"
	TierLong   = "long"
)

// TierSpec fixes the word bounds and usage-credit weight for one episode
// length tier. The concrete table lives in config, not here.
type TierSpec struct {
	MinWords     int
	MaxWords     int
	CreditWeight int
}

// NormalizeTier maps absent or unknown tier names to the medium default.
func NormalizeTier(tier string) string {
	switch tier {
	case TierShort, TierMedium, TierLong:
		return tier
	default:
		return TierMedium
	}
}
