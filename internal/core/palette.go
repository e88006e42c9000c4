package core

// Style is an (icon, color) token pair offered by the icon picker.
type Style struct {
	Icon  string
	Color string
}

var palette = []Style{
	{Icon: "fa-beer-mug-empty", Color: "bg-yellow-400"},
	{Icon: "fa-pizza-slice", Color: "bg-orange-500"},
	{Icon: "fa-burger", Color: "bg-amber-600"},
	{Icon: "fa-glass-water", Color: "bg-blue-400"},
	{Icon: "fa-martini-glass", Color: "bg-pink-400"},
	{Icon: "fa-wine-glass", Color: "bg-red-700"},
	{Icon: "fa-mug-hot", Color: "bg-amber-800"},
	{Icon: "fa-ice-cream", Color: "bg-emerald-400"},
	{Icon: "fa-drumstick-bite", Color: "bg-orange-700"},
	{Icon: "fa-utensils", Color: "bg-slate-500"},
}

// Palette returns a copy of the ordered picker grid.
func Palette() []Style {
	return append([]Style(nil), palette...)
}

// StyleAt returns the palette entry at index i.
func StyleAt(i int) (Style, error) {
	if i < 0 || i >= len(palette) {
		return Style{}, ErrInvalidIcon
	}
	return palette[i], nil
}
