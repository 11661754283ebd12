package screening

import (
	"invscreen/internal/domain"
)

const (
	ReasonNoHistory = "No historical data to compare against; invoice treated as clean."
	ReasonClean     = "No duplicates, anomalies, or ghost signals found."
)

// Engine screens candidate invoices against a ledger snapshot. It holds no
// state between calls and is safe for concurrent use.
type Engine struct {
	opts   Options
	stages []*Stage
}

// NewEngine builds the fixed detector cascade.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts: opts,
		stages: []*Stage{
			exactMatchStage(),
			invoiceNumberStage(),
			datePriorityStage(),
			gstinPriorityStage(),
			ghostStage(),
			priceStage(),
			rankingStage(),
		},
	}
}

// Options returns the detector options the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// Stages returns the cascade in execution order.
func (e *Engine) Stages() []*Stage {
	out := make([]*Stage, len(e.stages))
	copy(out, e.stages)
	return out
}

// Screen runs the cascade for candidate against ledger and returns a complete
// verdict. A nil or empty ledger yields CLEAN.
func (e *Engine) Screen(candidate *domain.InvoiceRecord, ledger *domain.Ledger) *domain.Verdict {
	if ledger == nil {
		ledger = &domain.Ledger{}
	}
	v := &domain.Verdict{
		InvoiceHash:    Fingerprint(candidate),
		NearDuplicates: []domain.NearDuplicate{},
		GhostSignals:   []string{},
		PriceAnomalies: []string{},
		OverallFlag:    domain.FlagClean,
		Reasons:        []string{},
		SkippedRecords: append([]domain.SkipReason{}, ledger.Skipped...),
	}
	v.Findings = Findings(candidate, ledger, &e.opts)

	if len(ledger.Entries) == 0 {
		v.Reasons = append(v.Reasons, ReasonNoHistory)
		return v
	}

	s := newSession(&e.opts, candidate, ledger, v)
	for _, st := range e.stages {
		if st.fn(s) == Terminate {
			break
		}
	}
	if v.OverallFlag == domain.FlagClean && len(v.Reasons) == 0 {
		v.Reasons = append(v.Reasons, ReasonClean)
	}
	return v
}
