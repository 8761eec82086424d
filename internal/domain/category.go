package domain

import "math"

// Category is the severity band of a UV index value.
type Category string

const (
	CategoryLow      Category = "low"
	CategoryModerate Category = "moderate"
	CategoryHigh     Category = "high"
	CategoryVeryHigh Category = "very_high"
	CategoryExtreme  Category = "extreme"
)

// CategoryFor maps a UV index onto its severity band. It is total: negative
// and NaN inputs are treated as Low.
func CategoryFor(index float64) Category {
	switch {
	case math.IsNaN(index) || index < 3:
		return CategoryLow
	case index < 6:
		return CategoryModerate
	case index < 8:
		return CategoryHigh
	case index < 11:
		return CategoryVeryHigh
	default:
		return CategoryExtreme
	}
}

// Label returns the human-readable name shown next to a reading.
func (c Category) Label() string {
	switch c {
	case CategoryLow:
		return "Low"
	case CategoryModerate:
		return "Moderate"
	case CategoryHigh:
		return "High"
	case CategoryVeryHigh:
		return "Very High"
	case CategoryExtreme:
		return "Extreme"
	default:
		return "Unknown"
	}
}

// Color returns the legend colour for the category.
func (c Category) Color() string {
	switch c {
	case CategoryLow:
		return "green"
	case CategoryModerate:
		return "yellow"
	case CategoryHigh:
		return "orange"
	case CategoryVeryHigh:
		return "red"
	case CategoryExtreme:
		return "purple"
	default:
		return "gray"
	}
}
