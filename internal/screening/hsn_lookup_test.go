package screening_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invscreen/internal/port"
	"invscreen/internal/screening"
)

func testHSNLookup() *screening.HSNLookup {
	return screening.NewHSNLookup([]port.HSNEntry{
		{Code: "8471", Description: "Automatic data processing machines", GSTRate: 18},
		{Code: "8471", Description: "Automatic data processing machines (conditional)", GSTRate: 12, ConditionDesc: "used/refurbished"},
		{Code: "84714100", Description: "Digital computers", GSTRate: 18},
		{Code: "100630", Description: "Semi-milled or wholly milled rice", GSTRate: 5},
	})
}

func TestHSNLookup_Rates(t *testing.T) {
	lookup := testHSNLookup()
	assert.Equal(t, 3, lookup.Len())

	assert.Len(t, lookup.Rates("8471"), 2)
	assert.Len(t, lookup.Rates("84714100"), 1)
	// 8 digits fall back to the 4-digit heading.
	assert.Len(t, lookup.Rates("84719000"), 2)
	// and to the 6-digit subheading first when present.
	assert.Equal(t, 5.0, lookup.Rates("10063010")[0].Rate)
	assert.Nil(t, lookup.Rates("9999"))
	assert.Nil(t, lookup.Rates(""))
}

func TestHSNLookup_RateMatches(t *testing.T) {
	lookup := testHSNLookup()

	ok, known := lookup.RateMatches("8471", 12.3, 0.5)
	assert.True(t, ok)
	assert.Len(t, known, 2)

	ok, known = lookup.RateMatches("8471", 28, 0.5)
	assert.False(t, ok)
	assert.Len(t, known, 2)

	ok, known = lookup.RateMatches("0000", 18, 0.5)
	assert.False(t, ok)
	assert.Empty(t, known)
}

func TestHSNLookup_NilSafe(t *testing.T) {
	var lookup *screening.HSNLookup
	assert.Equal(t, 0, lookup.Len())
	assert.Nil(t, lookup.Rates("8471"))
	ok, known := lookup.RateMatches("8471", 18, 0.5)
	assert.False(t, ok)
	assert.Empty(t, known)
}
