package screening

import (
	"math"
	"sort"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"invscreen/internal/domain"
)

// freshWindowDays is how long a historical price is taken at face value before
// inflation is applied.
const freshWindowDays = 30

var money = message.NewPrinter(language.English)

// pricePoint is one historical purchase of an item from a vendor.
type pricePoint struct {
	vendor string
	desc   string
	hsn    string
	price  float64
	date   time.Time
	index  int64
}

func priceStage() *Stage {
	return &Stage{key: "price_anomaly", name: "Price-Anomaly Detector", fn: runPriceAnomalies}
}

func runPriceAnomalies(s *session) Outcome {
	anomalies := priceAnomalies(s.opts, s.candidate, s.ledger)
	if len(anomalies) == 0 {
		return Continue
	}
	s.verdict.PriceAnomalies = append(s.verdict.PriceAnomalies, anomalies...)
	s.escalate(domain.FlagPriceAnomaly)
	for _, r := range anomalies {
		s.addReason(r)
	}
	return Continue
}

// buildPriceIndex flattens the ledger into one row per line item, newest first.
// Entries without a parseable date are left out.
func buildPriceIndex(ledger *domain.Ledger) []pricePoint {
	var points []pricePoint
	for i := range ledger.Entries {
		e := &ledger.Entries[i]
		date, ok := ParseDate(e.Invoice.Date.String())
		if !ok {
			continue
		}
		vendor := NormalizeText(e.Invoice.GSTIN.String())
		for j := range e.Invoice.LineItems {
			item := &e.Invoice.LineItems[j]
			points = append(points, pricePoint{
				vendor: vendor,
				desc:   NormalizeText(item.Description.String()),
				hsn:    item.HSNSAC.String(),
				price:  float64(item.UnitPrice),
				date:   date,
				index:  e.Index,
			})
		}
	}
	sort.SliceStable(points, func(a, b int) bool {
		if !points[a].date.Equal(points[b].date) {
			return points[a].date.After(points[b].date)
		}
		return points[a].index > points[b].index
	})
	return points
}

// priceAnomalies compares each candidate line with the vendor's most recent
// earlier purchase of the same item. Items with no history are skipped.
func priceAnomalies(opts *Options, candidate *domain.InvoiceRecord, ledger *domain.Ledger) []string {
	date, ok := ParseDate(candidate.Date.String())
	if !ok {
		return nil
	}
	index := buildPriceIndex(ledger)
	if len(index) == 0 {
		return nil
	}
	vendor := NormalizeText(candidate.GSTIN.String())

	var anomalies []string
	for i := range candidate.LineItems {
		item := &candidate.LineItems[i]
		desc := NormalizeText(item.Description.String())
		hsn := item.HSNSAC.String()

		last := lastPurchase(index, vendor, desc, hsn, date)
		if last == nil || last.price <= 0 {
			continue
		}
		days := daysBetween(last.date, date)
		ceiling := priceCeiling(last.price, days, opts.InflationRate, opts.PriceMargin)
		price := float64(item.UnitPrice)
		if price <= ceiling {
			continue
		}
		anomalies = append(anomalies, money.Sprintf(
			"Price Anomaly: Item '%s' (HSN: %s) unit price %.2f is %.1f%% above the acceptable limit of %.2f and %.1f%% above the last price (Based on last price %.2f from %s).",
			item.Description, hsn, price,
			(price/ceiling-1)*100, ceiling,
			(price/last.price-1)*100,
			last.price, last.date.Format("2006-01-02"),
		))
	}
	return anomalies
}

// lastPurchase returns the newest index row for the item strictly before date.
func lastPurchase(index []pricePoint, vendor, desc, hsn string, date time.Time) *pricePoint {
	for i := range index {
		p := &index[i]
		if p.vendor == vendor && p.desc == desc && p.hsn == hsn && p.date.Before(date) {
			return p
		}
	}
	return nil
}

// priceCeiling ages lastPrice by compound inflation after the fresh window and
// adds the tolerated margin.
func priceCeiling(lastPrice float64, days int, inflation, margin float64) float64 {
	if days <= freshWindowDays {
		return lastPrice * (1 + margin)
	}
	years := float64(days) / 365.25
	return lastPrice * math.Pow(1+inflation, years) * (1 + margin)
}
