package screening

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"invscreen/internal/domain"
)

// Fingerprint computes the SHA-256 of an invoice's identifying fields:
// GSTIN, invoice number, date and total amount. Two invoices with the same
// fingerprint are exact duplicates.
//
// The GSTIN is upper-cased and the date rendered as YYYY-MM-DD when parseable so
// that formatting noise does not hide a resubmission. The invoice number is kept
// verbatim; near-identical numbers are the cascade's job.
func Fingerprint(inv *domain.InvoiceRecord) string {
	parts := []string{
		strings.ToUpper(strings.TrimSpace(inv.GSTIN.String())),
		strings.TrimSpace(inv.InvoiceNumber.String()),
		canonicalDate(inv.Date.String()),
		inv.TotalAmount.String(),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
