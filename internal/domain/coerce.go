package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a currency or quantity value. Extraction output frequently carries
// amounts as formatted strings, so decoding never fails: anything that cannot
// be read as a number becomes zero.
type Amount float64

var amountNoise = strings.NewReplacer(
	"₹", "", "$", "", "Rs.", "", "Rs", "", "rs.", "", "INR", "",
	"/-", "", ",", "", " ", "", "\u00a0", "",
)

// ParseAmount coerces a formatted currency string such as "₹ 5,123.50" to an Amount.
// Null, empty and malformed input yields zero.
func ParseAmount(s string) Amount {
	cleaned := amountNoise.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return Amount(f)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = 0
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = ParseAmount(s)
	default:
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			*a = 0
			return nil
		}
		f, _ := d.Float64()
		*a = Amount(f)
	}
	return nil
}

// String formats the amount with two decimals.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}

// Text is a free-text field that extraction may emit as a JSON number (an
// invoice number or HSN code read as 1002, a GSTIN or description read as
// digits). Non-string scalars are stringified.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(strings.TrimSpace(s))
	case data[0] == '{' || data[0] == '[':
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// LineItems is the ordered line-item list of an invoice. It decodes from a JSON
// array or from a string holding a JSON-encoded array; anything else decodes to
// an empty list.
type LineItems []LineItem

// UnmarshalJSON never fails; unparsable payloads become an empty list.
func (l *LineItems) UnmarshalJSON(data []byte) error {
	*l = DecodeLineItems(data)
	return nil
}

// DecodeLineItems reads line items from structured or serialized JSON. Array
// elements that are not objects, or whose fields cannot be decoded, are dropped.
func DecodeLineItems(data []byte) LineItems {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return LineItems{}
	}
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return LineItems{}
		}
		data = bytes.TrimSpace([]byte(encoded))
		if len(data) == 0 || data[0] != '[' {
			return LineItems{}
		}
	}
	if data[0] != '[' {
		return LineItems{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LineItems{}
	}
	items := make(LineItems, 0, len(raw))
	for _, elem := range raw {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var item LineItem
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}
