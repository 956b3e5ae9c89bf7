// Package layout tracks the responsive navigation state of the shell.
package layout

// DefaultBreakpoint is the terminal width, in columns, at or below which the
// sidebar collapses.
const DefaultBreakpoint = 100

const (
	expandedWidth  = 22
	collapsedWidth = 4
)

// Nav is the sidebar collapse state. The zero value is not useful; build one
// with NewNav.
type Nav struct {
	Breakpoint int
	Width      int
	Collapsed  bool
}

// NewNav initialises the collapse flag from the current viewport width.
// A width of zero (unknown) leaves the sidebar expanded until the first
// resize event arrives.
func NewNav(width, breakpoint int) Nav {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	n := Nav{Breakpoint: breakpoint}
	if width > 0 {
		n.Resize(width)
	}
	return n
}

// Resize records a new viewport width and recomputes the collapse flag.
// A manual toggle does not survive a resize.
func (n *Nav) Resize(width int) {
	n.Width = width
	n.Collapsed = width <= n.Breakpoint
}

// Toggle flips the collapse flag until the next resize.
func (n *Nav) Toggle() {
	n.Collapsed = !n.Collapsed
}

// SidebarWidth is the number of columns the sidebar occupies.
func (n Nav) SidebarWidth() int {
	if n.Collapsed {
		return collapsedWidth
	}
	return expandedWidth
}

// ContentWidth is what remains for the active screen, never below 20.
func (n Nav) ContentWidth() int {
	w := n.Width - n.SidebarWidth() - 2
	if w < 20 {
		return 20
	}
	return w
}
