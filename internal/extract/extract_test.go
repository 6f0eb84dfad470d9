package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDecimal(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *float64
	}{
		{"grouped currency", "Soft pledges: $1,234.50", ptr(1234.50)},
		{"first candidate wins", "Total in soft pledges: $300\nSoft pledges: $12", ptr(300)},
		{"falls back to later candidate", "soft PLEDGES:   75", ptr(75)},
		{"markup noise", "**Total in soft pledges:** about $ 1,000", ptr(1000)},
		{"colon after markup", "*Total in soft pledges*: 42.5", ptr(42.5)},
		{"label spacing", "Total  in\tsoft pledges: 9", ptr(9)},
		{"bare fraction", "Soft pledges: $.50", ptr(0.5)},
		{"leading zero fraction", "Soft pledges: $0.50", ptr(0.5)},
		{"point after word is not a fraction", "Soft pledges: approx.35", nil},
		{"trailing point", "Soft pledges: $12. thanks", ptr(12)},
		{"parenthetical before colon", "Soft pledges (est.): $100", ptr(100)},
		{"no label", "We had a great night, $500 raised", nil},
		{"value on another line", "Soft pledges:\n$20", nil},
		{"empty", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractDecimal(tc.text, SoftPledges)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 1e-9)
		})
	}
}

func TestExtractInteger(t *testing.T) {
	tests := []struct {
		text string
		want *int64
	}{
		{"Number of calls: 20", iptr(20)},
		{"Calls: 1,204", iptr(1204)},
		{"number of CALLS: ~35 dialed", iptr(35)},
		{"Recalls: 3", nil},
		{"Calls: .5", nil},
		{"Calls (approx): 40", iptr(40)},
		{"calls were slow tonight", nil},
	}
	for _, tc := range tests {
		got := ExtractInteger(tc.text, NumberOfCalls)
		if tc.want == nil {
			assert.Nil(t, got, tc.text)
			continue
		}
		if assert.NotNil(t, got, tc.text) {
			assert.Equal(t, *tc.want, *got, tc.text)
		}
	}
}

func TestExtractIntegerSkipsUnparsableCandidate(t *testing.T) {
	f := NewField("dials", Integer, "Dialed", "Calls")
	text := "Dialed: 99999999999999999999\nCalls: 12"
	got := ExtractInteger(text, f)
	require.NotNil(t, got)
	assert.Equal(t, int64(12), *got)
}

func ptr(v float64) *float64 { return &v }
func iptr(v int64) *int64    { return &v }
