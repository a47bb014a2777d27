package browser

import (
	"fmt"
	"strings"
)

// LocatorKind selects how a Candidate locates its element.
type LocatorKind int

const (
	// BySelector locates by CSS selector.
	BySelector LocatorKind = iota
	// ByText locates a clickable element by its visible text.
	ByText
	// ByAriaLabel locates by exact aria-label value.
	ByAriaLabel
)

// Candidate is one (locator, kind) pair in an ordered fallback list. Meeting
// UIs vary across rollouts and locales, so join-sequence steps carry several
// candidates and take the first that resolves.
type Candidate struct {
	Locator string
	Kind    LocatorKind
}

// Css builds a CSS selector candidate.
func Css(selector string) Candidate {
	return Candidate{Locator: selector, Kind: BySelector}
}

// Text builds a visible-text candidate.
func Text(text string) Candidate {
	return Candidate{Locator: text, Kind: ByText}
}

// Aria builds an aria-label candidate.
func Aria(label string) Candidate {
	return Candidate{Locator: label, Kind: ByAriaLabel}
}

// Action is what FindAndAct does with the first resolving candidate.
type Action int

const (
	// ActionClick clicks the element.
	ActionClick Action = iota
	// ActionNone only confirms presence.
	ActionNone
)

// Match identifies which candidate resolved.
type Match struct {
	Candidate Candidate
	Index     int
}

// Selector renders the candidate as the selector string handed to the
// browser: CSS passes through, text and aria-label become XPath.
func (c Candidate) Selector() string {
	switch c.Kind {
	case ByText:
		return fmt.Sprintf(
			`//button[normalize-space()=%s] | //span[normalize-space()=%s]/ancestor::button`,
			xpathLiteral(c.Locator), xpathLiteral(c.Locator))
	case ByAriaLabel:
		return fmt.Sprintf(`//*[@aria-label=%s]`, xpathLiteral(c.Locator))
	default:
		return c.Locator
	}
}

// IsXPath reports whether Selector() produced an XPath expression.
func (c Candidate) IsXPath() bool {
	return c.Kind == ByText || c.Kind == ByAriaLabel
}

func (c Candidate) String() string {
	switch c.Kind {
	case ByText:
		return "text=" + c.Locator
	case ByAriaLabel:
		return "aria=" + c.Locator
	default:
		return "css=" + c.Locator
	}
}

// xpathLiteral quotes a string for embedding in an XPath expression,
// handling values that contain quotes.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	// Mixed quotes need concat().
	parts := strings.Split(s, `'`)
	var sb strings.Builder
	sb.WriteString("concat(")
	for i, part := range parts {
		if i > 0 {
			sb.WriteString(`, "'", `)
		}
		sb.WriteString(`'` + part + `'`)
	}
	sb.WriteString(")")
	return sb.String()
}
