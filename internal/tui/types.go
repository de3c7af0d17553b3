package tui

import (
	"github.com/csheth/folio/internal/pages"
	"github.com/csheth/folio/internal/viewer"
)

const (
	headerRows = 1
	footerRows = 2
	// every page region starts with one label row
	labelRows = 1

	minListWidth  = 16
	minBodyHeight = 3
	railPadding   = 3
	wheelStep     = 3
)

type sourceResultMsg struct {
	seq      int
	resolved pages.Resolved
	err      error
}

type pageRenderedMsg struct {
	req   viewer.RenderRequest
	lines []string
	rows  int
	err   error
}

type scrollFrameMsg struct {
	token viewer.Token
}

type settleFallbackMsg struct {
	token viewer.Token
}

type resizeFireMsg struct {
	token viewer.ResizeToken
}

// placeholderRows is a region's height at width columns before its bitmap
// is drawn: a square page plus its label.
func placeholderRows(width int) int {
	return (max(width, 1)+1)/2 + labelRows
}
