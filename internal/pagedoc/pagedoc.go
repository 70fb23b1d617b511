// Package pagedoc defines the wire format shared by templates and documents:
// an HTML markup string whose pages are separated by a literal delimiter the
// editor depends on byte-for-byte.
package pagedoc

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PageBreak is the exact page-boundary marker. It must survive every
// store/retrieve cycle unchanged or the editor loses pagination.
const PageBreak = `<hr style="page-break-after: always;">`

// SplitPages splits content on the page-break delimiter. Content with no
// delimiter is a single page; empty content is one empty page.
func SplitPages(content string) []string {
	return strings.Split(content, PageBreak)
}

// JoinPages is the inverse of SplitPages: JoinPages(SplitPages(c)) == c.
func JoinPages(pages []string) string {
	return strings.Join(pages, PageBreak)
}

// PageCount reports how many pages the content renders to.
func PageCount(content string) int {
	return strings.Count(content, PageBreak) + 1
}

type PaperSize string

const (
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
	PaperA4     PaperSize = "a4"
)

func (p PaperSize) Valid() bool {
	switch p {
	case PaperLetter, PaperLegal, PaperA4:
		return true
	default:
		return false
	}
}

// Dimensions returns the sheet size in inches, the unit print backends use.
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperLegal:
		return 8.5, 14.0
	case PaperA4:
		return 8.27, 11.69
	default:
		return 8.5, 11.0
	}
}

// Margins are page insets in inches.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// DefaultMargins is one inch on every side.
func DefaultMargins() Margins {
	return Margins{Top: 1, Bottom: 1, Left: 1, Right: 1}
}

func (m Margins) Valid() bool {
	return m.Top >= 0 && m.Bottom >= 0 && m.Left >= 0 && m.Right >= 0
}

var strict = bluemonday.StrictPolicy()

// SanitizeText strips all markup from a plain-text field (names,
// descriptions, removal reasons). Never applied to page content, which must
// round-trip exactly.
func SanitizeText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
