package testing

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-drift/screens/pkg/screen"
	"github.com/go-drift/screens/pkg/ui"
)

// Finder locates displayables in the live screen trees.
type Finder interface {
	// Evaluate returns all matching displayables under root (depth-first pre-order).
	Evaluate(root ui.Displayable) []ui.Displayable
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	matches []ui.Displayable
	finder  Finder
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() ui.Displayable {
	if len(r.matches) == 0 {
		panic(fmt.Sprintf("Finder found nothing: %s", r.description()))
	}
	return r.matches[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() ui.Displayable {
	if len(r.matches) == 0 {
		return nil
	}
	return r.matches[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) ui.Displayable {
	if index < 0 || index >= len(r.matches) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.matches), r.description()))
	}
	return r.matches[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []ui.Displayable {
	return r.matches
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.matches)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.matches) > 0
}

func (r FinderResult) description() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// --- Concrete finders ---

type typeFinder struct {
	typ      reflect.Type
	typeName string
}

func (f *typeFinder) Evaluate(root ui.Displayable) []ui.Displayable {
	return collectMatches(root, func(d ui.Displayable) bool {
		return reflect.TypeOf(d) == f.typ
	})
}

func (f *typeFinder) Description() string {
	return fmt.Sprintf("ByType(%s)", f.typeName)
}

// ByType returns a finder that matches displayables of type T.
func ByType[T ui.Displayable]() Finder {
	t := reflect.TypeFor[T]()
	return &typeFinder{typ: t, typeName: t.String()}
}

type textFinder struct {
	text     string
	contains bool
}

func (f *textFinder) Evaluate(root ui.Displayable) []ui.Displayable {
	return collectMatches(root, func(d ui.Displayable) bool {
		t, ok := d.(*ui.Text)
		if !ok {
			return false
		}
		if f.contains {
			return strings.Contains(t.Content, f.text)
		}
		return t.Content == f.text
	})
}

func (f *textFinder) Description() string {
	if f.contains {
		return fmt.Sprintf("ByTextContaining(%q)", f.text)
	}
	return fmt.Sprintf("ByText(%q)", f.text)
}

// ByText returns a finder that matches ui.Text with exact content.
func ByText(text string) Finder {
	return &textFinder{text: text}
}

// ByTextContaining returns a finder that matches ui.Text whose content
// contains substring.
func ByTextContaining(substring string) Finder {
	return &textFinder{text: substring, contains: true}
}

type screenFinder struct {
	name []string
}

func (f *screenFinder) Evaluate(root ui.Displayable) []ui.Displayable {
	return collectMatches(root, func(d ui.Displayable) bool {
		s, ok := d.(*screen.Instance)
		return ok && strings.Join(s.Name(), " ") == strings.Join(f.name, " ")
	})
}

func (f *screenFinder) Description() string {
	return fmt.Sprintf("ByScreen(%q)", strings.Join(f.name, " "))
}

// ByScreen returns a finder that matches screen instances shown under name.
func ByScreen(name string) Finder {
	return &screenFinder{name: strings.Fields(name)}
}

type predicateFinder struct {
	fn   func(ui.Displayable) bool
	desc string
}

func (f *predicateFinder) Evaluate(root ui.Displayable) []ui.Displayable {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByPredicate returns a finder that matches displayables satisfying fn.
func ByPredicate(fn func(ui.Displayable) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

// descendantFinder finds displayables matching 'matching' below those
// matching 'of'.
type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root ui.Displayable) []ui.Displayable {
	var results []ui.Displayable
	seen := make(map[ui.Displayable]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		// Search each ancestor's subtree, skipping the ancestor itself.
		for _, child := range ancestor.Visit() {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
		}
	}
	return results
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant returns a finder that matches displayables satisfying
// 'matching' that are descendants of displayables matching 'of'.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

// collectMatches performs depth-first pre-order traversal, collecting
// displayables that satisfy the predicate.
func collectMatches(root ui.Displayable, predicate func(ui.Displayable) bool) []ui.Displayable {
	var results []ui.Displayable
	ui.VisitAll(root, func(d ui.Displayable) {
		if predicate(d) {
			results = append(results, d)
		}
	})
	return results
}
