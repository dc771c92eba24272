package report

// Page geometry in millimetres (A4 portrait).
const (
	fontFamily = "Helvetica"

	pageWidth     = 210.0
	pageHeight    = 297.0
	topMargin     = 20.0
	contentBottom = pageHeight - 20
	footerY       = pageHeight - 10
	marginX       = 15.0
	contentWidth  = pageWidth - 2*marginX
)

var (
	colorBlack     = Color{R: 0, G: 0, B: 0}
	colorMuted     = Color{R: 100, G: 100, B: 100}
	colorFooter    = Color{R: 150, G: 150, B: 150}
	colorHeading   = Color{R: 30, G: 64, B: 175}
	colorAlert     = Color{R: 220, G: 38, B: 38}
	colorAlertFill = Color{R: 254, G: 242, B: 242}
	colorInfoFill  = Color{R: 239, G: 246, B: 255}
	colorNarrative = Color{R: 5, G: 150, B: 105}
	colorBullet    = Color{R: 34, G: 197, B: 94}
	colorEmphasis  = Color{R: 139, G: 69, B: 19}
	colorTableHead = Color{R: 59, G: 130, B: 246}
	colorTableFill = Color{R: 219, G: 234, B: 254}
	colorStripe    = Color{R: 249, G: 250, B: 251}

	colorCardBlue   = Color{R: 59, G: 130, B: 246}
	colorCardRed    = Color{R: 239, G: 68, B: 68}
	colorCardGreen  = Color{R: 34, G: 197, B: 94}
	colorCardPurple = Color{R: 168, G: 85, B: 247}
)

// tint mixes c with white, keeping 10% of the colour.
func tint(c Color) Color {
	mix := func(v uint8) uint8 { return uint8(float64(v) + (255-float64(v))*0.9) }
	return Color{R: mix(c.R), G: mix(c.G), B: mix(c.B)}
}

func colorPtr(c Color) *Color { return &c }

// cursor is the layout position: a page index and a vertical offset.
type cursor struct {
	Page int
	Y    float64
}

// fresh reports whether nothing has been placed below the top margin.
func (c cursor) fresh() bool {
	return c.Y <= topMargin
}

// breakFor moves to the top of the next page when a block of the given
// height does not fit below the cursor. A block taller than a whole page
// is placed on a fresh page as-is.
func (c cursor) breakFor(height float64) cursor {
	if c.Y+height > contentBottom && !c.fresh() {
		return cursor{Page: c.Page + 1, Y: topMargin}
	}
	return c
}

// placedOp is a draw operation bound to a page index.
type placedOp struct {
	Page int
	Op   Op
}

// builder accumulates pages while blocks are laid out in order.
type builder struct {
	pages [][]Op
	cur   cursor
}

func newBuilder() *builder {
	return &builder{pages: make([][]Op, 1), cur: cursor{Page: 0, Y: topMargin}}
}

func (b *builder) grow(page int) {
	for len(b.pages) <= page {
		b.pages = append(b.pages, nil)
	}
}

func (b *builder) add(ops ...Op) {
	b.pages[b.cur.Page] = append(b.pages[b.cur.Page], ops...)
}

func (b *builder) addPlaced(ops []placedOp) {
	for _, p := range ops {
		b.grow(p.Page)
		b.pages[p.Page] = append(b.pages[p.Page], p.Op)
	}
}

// moveTo sets the cursor, creating any pages it points past.
func (b *builder) moveTo(c cursor) {
	b.grow(c.Page)
	b.cur = c
}

// reserve starts a new page unless height fits below the cursor.
func (b *builder) reserve(height float64) {
	b.moveTo(b.cur.breakFor(height))
}

func (b *builder) newPage() {
	b.moveTo(cursor{Page: len(b.pages), Y: topMargin})
}

func (b *builder) text(x, dy float64, s string, size float64, style FontStyle, color Color) {
	b.add(TextOp{X: x, Y: b.cur.Y + dy, Text: s, Size: size, Style: style, Color: color})
}
