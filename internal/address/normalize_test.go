package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"suffix expansion", "123 Main St", "123 Main Street"},
		{"directional expansion", "456 N Lamar Blvd", "456 North Lamar Boulevard"},
		{"trailing period", "789 Oak Ave.", "789 Oak Avenue"},
		{"repeated trailing periods", "123 Main St..", "123 Main Street"},
		{"case folding", "123 MAIN STREET", "123 Main Street"},
		{"whitespace collapse", "  123   Main   St  ", "123 Main Street"},
		{"unit left alone", "123 Main St Apt 4B", "123 Main Street Apt 4B"},
		{"ordinal untouched", "500 W 7th St", "500 West 7th Street"},
		{"comma preserved", "123 Main St, Dallas", "123 Main Street, Dallas"},
		{"empty", "", ""},
		{"spaces only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"123 Main St",
		"123 Main St..",
		"456 n lamar blvd",
		"789 OAK AVE, Houston",
		"1 Elm",
		"500 W 7th St Ste 200",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestMeaningfulLength(t *testing.T) {
	assert.Equal(t, 0, MeaningfulLength(""))
	assert.Equal(t, 0, MeaningfulLength("  ,. "))
	assert.Equal(t, 7, MeaningfulLength("123 Main"))
	assert.Equal(t, 5, MeaningfulLength("a b c d e"))
}

func TestNew(t *testing.T) {
	a := New("123 Main St", "75201")
	assert.Equal(t, "123 Main St", a.Raw)
	assert.Equal(t, "123 Main Street", a.Normalized)
	assert.Equal(t, "75201", a.Zip)
}
