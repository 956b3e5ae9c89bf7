package layout

import "testing"

func TestNewNavFromWidth(t *testing.T) {
	if n := NewNav(80, 100); !n.Collapsed {
		t.Fatalf("80 cols should start collapsed")
	}
	if n := NewNav(100, 100); !n.Collapsed {
		t.Fatalf("width equal to breakpoint should collapse")
	}
	if n := NewNav(140, 100); n.Collapsed {
		t.Fatalf("140 cols should start expanded")
	}
	if n := NewNav(0, 0); n.Collapsed || n.Breakpoint != DefaultBreakpoint {
		t.Fatalf("unknown width: %+v", n)
	}
}

// TestResizeOverridesToggle mirrors the shell: a resize recomputes the flag.
func TestResizeOverridesToggle(t *testing.T) {
	n := NewNav(140, 100)
	n.Toggle()
	if !n.Collapsed {
		t.Fatalf("toggle should collapse")
	}
	n.Resize(150)
	if n.Collapsed {
		t.Fatalf("resize above breakpoint should expand")
	}
	n.Resize(90)
	if !n.Collapsed {
		t.Fatalf("resize below breakpoint should collapse")
	}
}

func TestContentWidthFloor(t *testing.T) {
	n := NewNav(10, 100)
	if got := n.ContentWidth(); got != 20 {
		t.Fatalf("ContentWidth=%d", got)
	}
	n.Resize(200)
	if got := n.ContentWidth(); got != 200-expandedWidth-2 {
		t.Fatalf("ContentWidth=%d", got)
	}
}
