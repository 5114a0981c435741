package colorsched

// Palette is an ordered list of CSS colors. AssignColors works on indexes;
// the renderer maps them through a Palette.
type Palette []string

// DefaultPalette is used when the config does not provide one.
var DefaultPalette = Palette{
	"#3b82f6", // blue
	"#f59e0b", // amber
	"#10b981", // green
	"#9333ea", // purple
	"#ec4899", // pink
	"#ef4444", // red
	"#06b6d4", // cyan
}

// Size returns the number of colors, never less than 1 so it can be passed
// straight to AssignColors.
func (p Palette) Size() int {
	if len(p) == 0 {
		return 1
	}
	return len(p)
}

// Color returns the color for idx, wrapping out-of-range indexes. An empty
// palette falls back to DefaultPalette.
func (p Palette) Color(idx int) string {
	if len(p) == 0 {
		p = DefaultPalette
	}
	if idx < 0 {
		idx = -idx
	}
	return p[idx%len(p)]
}
