package model

import "math/rand"

// Category groups transactions for reporting.
type Category struct {
	ID     int64
	UserID int64
	Name   string
	Color  string // hex, e.g. "#1565C0"
	Icon   string
}

// DefaultIcon is used when a category is created without one.
const DefaultIcon = "tag"

var palette = []string{
	"#E83442", "#AD1457", "#6A1B9A", "#4527A0", "#283593",
	"#1565C0", "#0277BD", "#00838F", "#00695C", "#2E7D32",
	"#558B2F", "#9E9D24", "#F9A825", "#FF8F00", "#D84315", "#ED1111",
}

// RandomColor picks a color from the category palette.
func RandomColor() string {
	return palette[rand.Intn(len(palette))]
}

// WithDefaults fills in the icon and color when they are empty.
func (c Category) WithDefaults() Category {
	if c.Icon == "" {
		c.Icon = DefaultIcon
	}
	if c.Color == "" {
		c.Color = RandomColor()
	}
	return c
}
