// Package selection tracks the highlighted row of the bookmark list and the
// cursor of the per-item edit menu.
package selection

// None is the index reported when nothing is selected.
const None = -1

// Controller is an index cursor over a list whose length changes under it.
// Movement clamps at both ends. While the edit menu is open, movement is
// routed to the menu cursor, which wraps.
//
// Use New; the zero value has row 0 selected.
type Controller struct {
	index  int
	length int

	// keyboard records whether the most recent input was a key press.
	// Pointer hover only moves the selection when it is false.
	keyboard bool

	menuOpen  bool
	menuRow   int
	menuIndex int
	menuLen   int
}

// New returns a controller with nothing selected over an empty list.
func New() *Controller {
	return &Controller{index: None}
}

// Index returns the selected row or None.
func (c *Controller) Index() int {
	return c.index
}

// Selected returns the selected row and whether there is one.
func (c *Controller) Selected() (int, bool) {
	return c.index, c.index != None
}

// Len returns the list length the controller last reconciled against.
func (c *Controller) Len() int {
	return c.length
}

// SetLength reconciles the cursor with a new list length. A shrink clamps
// the index into range, or to None when the list is empty.
func (c *Controller) SetLength(n int) {
	if n < 0 {
		n = 0
	}
	c.length = n
	c.index = clamp(c.index, n)
	if c.menuOpen {
		c.menuRow = clamp(c.menuRow, n)
		if c.menuRow == None {
			c.menuOpen = false
		}
	}
}

// Down moves the cursor one row towards the end of the list.
func (c *Controller) Down() {
	c.move(1)
}

// Up moves the cursor one row towards the start of the list.
func (c *Controller) Up() {
	c.move(-1)
}

func (c *Controller) move(delta int) {
	c.keyboard = true
	if c.menuOpen {
		if c.menuLen > 0 {
			c.menuIndex = ((c.menuIndex+delta)%c.menuLen + c.menuLen) % c.menuLen
		}
		return
	}
	if c.length == 0 {
		c.index = None
		return
	}
	if c.index == None {
		c.index = 0
		return
	}
	c.index += delta
	if c.index < 0 {
		c.index = 0
	}
	if c.index > c.length-1 {
		c.index = c.length - 1
	}
}

// PointerMoved records pointer activity so that subsequent hovers apply.
func (c *Controller) PointerMoved() {
	c.keyboard = false
}

// Hover selects row when the last input came from the pointer. It reports
// whether the selection changed.
func (c *Controller) Hover(row int) bool {
	if c.keyboard || c.menuOpen || row < 0 || row >= c.length || row == c.index {
		return false
	}
	c.index = row
	return true
}

// Select sets the cursor directly, as a click does.
func (c *Controller) Select(row int) {
	if c.menuOpen || row < 0 || row >= c.length {
		return
	}
	c.index = row
}

// KeyboardActive reports whether the last input was a key press.
func (c *Controller) KeyboardActive() bool {
	return c.keyboard
}

// OpenMenu opens an edit menu with entries options for the selected row.
// The list index becomes None until the menu closes. It reports false when
// nothing is selected.
func (c *Controller) OpenMenu(entries int) bool {
	if c.menuOpen || c.index == None || entries <= 0 {
		return false
	}
	c.menuOpen = true
	c.menuRow = c.index
	c.menuIndex = 0
	c.menuLen = entries
	c.index = None
	return true
}

// CloseMenu closes the menu and restores the list cursor to the row the menu
// was opened for, clamped to the current length.
func (c *Controller) CloseMenu() {
	if !c.menuOpen {
		return
	}
	c.menuOpen = false
	c.index = clamp(c.menuRow, c.length)
	c.menuRow = None
	c.menuIndex = 0
	c.menuLen = 0
}

// MenuOpen reports whether the edit menu has focus.
func (c *Controller) MenuOpen() bool {
	return c.menuOpen
}

// MenuRow returns the list row the open menu belongs to, or None.
func (c *Controller) MenuRow() int {
	if !c.menuOpen {
		return None
	}
	return c.menuRow
}

// MenuIndex returns the highlighted menu entry.
func (c *Controller) MenuIndex() int {
	return c.menuIndex
}

// Reset clears the selection and closes the menu, keeping the length.
func (c *Controller) Reset() {
	c.index = None
	c.menuOpen = false
	c.menuRow = None
	c.menuIndex = 0
	c.menuLen = 0
}

func clamp(index, length int) int {
	switch {
	case length <= 0, index == None:
		return None
	case index < 0:
		return 0
	case index >= length:
		return length - 1
	default:
		return index
	}
}
