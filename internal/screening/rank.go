package screening

import (
	"sort"

	"invscreen/internal/domain"
)

const ReasonSimilarityMatch = "Similarity-based match found; review required"

func rankingStage() *Stage {
	return &Stage{key: "ranking", name: "Near-Duplicate Ranking", fn: runRanking}
}

// runRanking orders the collected near-duplicates and lets the top candidate's
// confidence set a floor on the overall flag.
func runRanking(s *session) Outcome {
	nd := s.verdict.NearDuplicates
	if len(nd) == 0 {
		return Continue
	}
	sortNearDuplicates(nd)
	s.nearIdx = nil

	s.escalate(flagForConfidence(nd[0].FinalConfidence))
	s.addReason(ReasonSimilarityMatch)
	return Continue
}

// sortNearDuplicates orders by invoice-number similarity desc, then line-item
// similarity desc, then total difference asc.
func sortNearDuplicates(nd []domain.NearDuplicate) {
	sort.SliceStable(nd, func(i, j int) bool {
		a, b := &nd[i].Features, &nd[j].Features
		if a.InvoiceNumberSimilarity != b.InvoiceNumberSimilarity {
			return a.InvoiceNumberSimilarity > b.InvoiceNumberSimilarity
		}
		if a.LineItemSimilarity != b.LineItemSimilarity {
			return a.LineItemSimilarity > b.LineItemSimilarity
		}
		return a.TotalRelativeDiff < b.TotalRelativeDiff
	})
}

func flagForConfidence(c float64) domain.Flag {
	switch {
	case c >= 0.9:
		return domain.FlagHighRiskNearDuplicate
	case c >= 0.75:
		return domain.FlagMediumRiskDuplicate
	default:
		return domain.FlagLowRiskRecheck
	}
}
