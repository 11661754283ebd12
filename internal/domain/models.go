package domain

import (
	"time"

	"github.com/google/uuid"
)

// LineItem represents a single billed line on an invoice.
type LineItem struct {
	Description Text   `json:"description"`
	HSNSAC      Text   `json:"hsn_sac"`
	Quantity    Amount `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
	Discount    Amount `json:"discount"`
	Tax         Amount `json:"tax"`
}

// InvoiceRecord is an extracted invoice as handed over by the extraction
// collaborator. It is read-only once screening starts.
type InvoiceRecord struct {
	InvoiceNumber Text      `json:"invoice_number"`
	Date          Text      `json:"date"`
	VendorName    Text      `json:"vendor_name"`
	GSTIN         Text      `json:"gstin"`
	IRN           string    `json:"irn,omitempty"`
	LineItems     LineItems `json:"line_items"`
	SGST          Amount    `json:"sgst_amount"`
	CGST          Amount    `json:"cgst_amount"`
	IGST          Amount    `json:"igst_amount"`
	UTGST         Amount    `json:"utgst_amount"`
	Cess          Amount    `json:"cess_amount"`
	Freight       Amount    `json:"freight"`
	TotalDiscount Amount    `json:"total_discount"`
	TotalAmount   Amount    `json:"total_amount"`
}

// HSNCodes returns the distinct non-empty HSN/SAC codes on the invoice.
func (r *InvoiceRecord) HSNCodes() map[string]bool {
	codes := make(map[string]bool, len(r.LineItems))
	for i := range r.LineItems {
		if code := r.LineItems[i].HSNSAC.String(); code != "" {
			codes[code] = true
		}
	}
	return codes
}

// LedgerEntry is one previously accepted invoice together with its position in the ledger.
type LedgerEntry struct {
	Index   int64         `json:"index"`
	Invoice InvoiceRecord `json:"invoice"`
}

// SkipReason records why a stored ledger row could not be used for comparison.
type SkipReason struct {
	Index  int64  `json:"index"`
	Reason string `json:"reason"`
}

// Ledger is the historical set of clean invoices a candidate is screened against.
type Ledger struct {
	Name    string        `json:"name"`
	Entries []LedgerEntry `json:"entries"`
	Skipped []SkipReason  `json:"skipped"`
}

// FeatureSet holds the comparison features between a candidate and one ledger invoice.
type FeatureSet struct {
	InvoiceNumberSimilarity float64  `json:"invoice_no_sim"`
	VendorNameSimilarity    float64  `json:"vendor_name_sim"`
	GSTINMatch              bool     `json:"gstin_match"`
	TotalRelativeDiff       float64  `json:"total_rel_diff"`
	DateDiffDays            *float64 `json:"date_diff_days"`
	LineItemSimilarity      float64  `json:"lineitems_sim"`
	HSNMismatch             bool     `json:"hsn_mismatch"`
	FinalConfidence         float64  `json:"final_confidence"`
}

// InvoiceSummary is the short description of a matched ledger invoice.
type InvoiceSummary struct {
	InvoiceNumber string `json:"invoice_no"`
	GSTIN         string `json:"vendor_gstin"`
	Date          string `json:"invoice_date"`
	TotalAmount   Amount `json:"total_amount"`
}

// NearDuplicate is a ledger invoice similar enough to the candidate to need human review.
type NearDuplicate struct {
	Index           int64          `json:"db_row_index"`
	Existing        InvoiceSummary `json:"existing_invoice_summary"`
	Features        FeatureSet     `json:"features"`
	FinalConfidence float64        `json:"final_confidence"`
	Reasons         []string       `json:"reasons"`
}

// Finding is an informational check result attached to a verdict.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Verdict is the structured outcome of screening one candidate invoice.
type Verdict struct {
	InvoiceHash         string          `json:"invoice_hash"`
	ExactDuplicate      bool            `json:"exact_duplicate"`
	ExactDuplicateMatch *int64          `json:"exact_duplicate_match"`
	NearDuplicates      []NearDuplicate `json:"near_duplicates"`
	GhostSignals        []string        `json:"ghost_signals"`
	PriceAnomalies      []string        `json:"line_item_price_anomalies"`
	OverallFlag         Flag            `json:"overall_flag"`
	Reasons             []string        `json:"reasons"`
	Findings            []Finding       `json:"findings"`
	SkippedRecords      []SkipReason    `json:"skipped_records"`
}

// Screening is the audit record of one screening call.
type Screening struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Ledger    string        `db:"ledger" json:"ledger"`
	Invoice   InvoiceRecord `db:"-" json:"invoice"`
	Verdict   Verdict       `db:"-" json:"verdict"`
	Appended  bool          `db:"appended" json:"appended"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// FlagAlert is the payload sent to reviewers when a screening is not clean.
type FlagAlert struct {
	ScreeningID   uuid.UUID
	Ledger        string
	InvoiceNumber string
	VendorName    string
	GSTIN         string
	TotalAmount   Amount
	Flag          Flag
	Reasons       []string
}
