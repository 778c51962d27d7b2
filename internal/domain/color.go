package domain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultColor fills assets whose value does not exceed the lowest threshold.
const DefaultColor = "#FFFFFF"

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Threshold binds a lower bound to a fill color.
type Threshold struct {
	Value float64
	Color string
}

// ColorScale is a choropleth scale. Thresholds are held in ascending order.
type ColorScale struct {
	thresholds []Threshold
}

// NewColorScale sorts a copy of thresholds ascending and validates them.
// Thresholds must be unique and colors must be #RRGGBB.
func NewColorScale(thresholds []Threshold) (ColorScale, error) {
	sorted := make([]Threshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	for i, t := range sorted {
		if !hexColorRe.MatchString(t.Color) {
			return ColorScale{}, fmt.Errorf("threshold %g: invalid color %q", t.Value, t.Color)
		}
		if i > 0 && sorted[i-1].Value == t.Value {
			return ColorScale{}, fmt.Errorf("duplicate threshold %g", t.Value)
		}
	}
	return ColorScale{thresholds: sorted}, nil
}

// DefaultColorScale is the blue precipitation ramp from 100 to 350 mm.
func DefaultColorScale() ColorScale {
	return ColorScale{thresholds: []Threshold{
		{Value: 100, Color: "#DBDCF6"},
		{Value: 150, Color: "#B7B9ED"},
		{Value: 200, Color: "#9396E5"},
		{Value: 250, Color: "#6F73DC"},
		{Value: 300, Color: "#4B50D3"},
		{Value: 350, Color: "#282ECB"},
	}}
}

// ParseColorScale parses "value:#color" pairs separated by commas,
// e.g. "100:#DBDCF6,150:#B7B9ED".
func ParseColorScale(s string) (ColorScale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ColorScale{}, errors.New("empty color scale")
	}

	var thresholds []Threshold
	for _, part := range strings.Split(s, ",") {
		value, color, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return ColorScale{}, fmt.Errorf("color scale entry %q: expected value:color", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return ColorScale{}, fmt.Errorf("color scale entry %q: %w", part, err)
		}
		thresholds = append(thresholds, Threshold{Value: v, Color: strings.TrimSpace(color)})
	}
	return NewColorScale(thresholds)
}

// Color maps a value to a fill color. The result is the color of the highest
// threshold strictly below v, or DefaultColor when v exceeds none of them.
func (s ColorScale) Color(v float64) string {
	color := DefaultColor
	for _, t := range s.thresholds {
		if v > t.Value {
			color = t.Color
		}
	}
	return color
}

// Thresholds returns a copy of the scale in ascending order.
func (s ColorScale) Thresholds() []Threshold {
	out := make([]Threshold, len(s.thresholds))
	copy(out, s.thresholds)
	return out
}

// String formats the scale in the form ParseColorScale accepts.
func (s ColorScale) String() string {
	parts := make([]string, len(s.thresholds))
	for i, t := range s.thresholds {
		parts[i] = strconv.FormatFloat(t.Value, 'g', -1, 64) + ":" + t.Color
	}
	return strings.Join(parts, ",")
}
