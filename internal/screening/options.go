package screening

// Options tunes the detectors. The zero value is not useful; start from DefaultOptions.
type Options struct {
	// InflationRate is the assumed annual price inflation used to age a
	// historical unit price (0.05 = 5% a year).
	InflationRate float64
	// PriceMargin is the tolerated overage above the inflation-adjusted price.
	PriceMargin float64
	// HighValueThreshold raises a review finding for invoices above this total.
	HighValueThreshold float64
	// HSN, when set, enables the billed-rate check against the HSN master.
	HSN *HSNLookup
}

// DefaultOptions returns the detector defaults.
func DefaultOptions() Options {
	return Options{
		InflationRate:      0.05,
		PriceMargin:        0.20,
		HighValueThreshold: 10000,
	}
}
