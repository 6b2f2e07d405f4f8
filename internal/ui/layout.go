package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which dates and tags are dropped.
	LayoutCompactWidth = 80

	// LayoutWideWidth is the minimum width to show comments inline.
	LayoutWideWidth = 120
)

// Rows of chrome around the list: header, input bar and rule above it,
// footer below.
const (
	listTop      = 3
	chromeHeight = listTop + 1
)

// Timing constants.
const (
	// NoticeTTL is how long a footer notice stays visible.
	NoticeTTL = 4 * time.Second
)
