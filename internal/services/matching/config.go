package matching

// Config carries the matching thresholds. It is an immutable value handed to
// the engine at construction; nothing mutates it between runs.
type Config struct {
	// DateToleranceDays is the maximum absolute day difference for the
	// exact tier.
	DateToleranceDays int
	// ReferenceThreshold is the minimum similarity ratio for the fuzzy
	// reference tier.
	ReferenceThreshold float64
	// PayeeThreshold is the minimum similarity ratio for the fuzzy payee
	// tier.
	PayeeThreshold float64
	// AmountTolerancePct is the maximum relative amount difference, in
	// percent, for the fuzzy payee tier. Tiers 1 and 2 always require exact
	// decimal equality: the lowest-confidence tier alone trades amount
	// slack for payee similarity.
	AmountTolerancePct float64
}

func DefaultConfig() Config {
	return Config{
		DateToleranceDays:  1,
		ReferenceThreshold: 90,
		PayeeThreshold:     85,
		AmountTolerancePct: 0.5,
	}
}
