package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		index float64
		want  Category
	}{
		{0, CategoryLow},
		{2.9, CategoryLow},
		{3.0, CategoryModerate},
		{5.99, CategoryModerate},
		{6.0, CategoryHigh},
		{7.5, CategoryHigh},
		{7.99, CategoryHigh},
		{8.0, CategoryVeryHigh},
		{10.999, CategoryVeryHigh},
		{11.0, CategoryExtreme},
		{18.4, CategoryExtreme},
		{math.Inf(1), CategoryExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryFor(tt.index), "index %v", tt.index)
	}
}

func TestCategoryFor_OutOfDomainIsLow(t *testing.T) {
	assert.Equal(t, CategoryLow, CategoryFor(-1))
	assert.Equal(t, CategoryLow, CategoryFor(math.NaN()))
}

func TestCategoryLabelAndColor(t *testing.T) {
	tests := []struct {
		cat   Category
		label string
		color string
	}{
		{CategoryLow, "Low", "green"},
		{CategoryModerate, "Moderate", "yellow"},
		{CategoryHigh, "High", "orange"},
		{CategoryVeryHigh, "Very High", "red"},
		{CategoryExtreme, "Extreme", "purple"},
		{Category("bogus"), "Unknown", "gray"},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			assert.Equal(t, tt.label, tt.cat.Label())
			assert.Equal(t, tt.color, tt.cat.Color())
		})
	}
}
