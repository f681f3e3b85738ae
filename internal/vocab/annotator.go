// Package vocab finds glossary terms in lesson text so clients can attach
// definitions to them.
package vocab

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
)

// Segment is a run of text. Term and Definition are set when the run is a
// glossary match; Text always holds the original spelling.
type Segment struct {
	Text       string `json:"text"`
	Term       string `json:"term,omitempty"`
	Definition string `json:"definition,omitempty"`
}

type entry struct {
	term       string
	definition string
	folded     string
}

// Annotator scans text for glossary terms. It is immutable after New and safe
// for concurrent use.
type Annotator struct {
	entries []entry
}

// New prepares an annotator for terms. A term with a parenthetical expansion,
// such as "ETF (Exchange-Traded Fund)", is matched on the part before the
// parenthesis.
func New(terms []catalog.Term) *Annotator {
	fold := cases.Fold()
	seen := make(map[string]bool, len(terms))
	a := &Annotator{entries: make([]entry, 0, len(terms))}

	for _, t := range terms {
		search := t.Term
		if i := strings.Index(search, "("); i >= 0 {
			search = search[:i]
		}
		search = strings.TrimSpace(search)
		if search == "" {
			continue
		}
		folded := fold.String(search)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		a.entries = append(a.entries, entry{term: t.Term, definition: t.Definition, folded: folded})
	}

	sort.SliceStable(a.entries, func(i, j int) bool {
		return len(a.entries[i].folded) > len(a.entries[j].folded)
	})
	return a
}

// Len returns the number of searchable terms.
func (a *Annotator) Len() int {
	return len(a.entries)
}

// Annotate splits text into plain and term segments. The scan runs left to
// right; at each position the longest matching term wins and matches never
// overlap. Matching ignores case.
func (a *Annotator) Annotate(text string) []Segment {
	if text == "" {
		return nil
	}

	// Fold rune by rune so matches map back onto byte offsets of the input.
	fold := cases.Fold()
	var (
		pieces  []string
		offsets []int
	)
	for off, r := range text {
		pieces = append(pieces, fold.String(string(r)))
		offsets = append(offsets, off)
	}
	offsets = append(offsets, len(text))
	n := len(pieces)

	var segs []Segment
	plain := 0
	for i := 0; i < n; {
		e, end, ok := a.longestAt(pieces, i)
		if !ok {
			i++
			continue
		}
		if plain < i {
			segs = append(segs, Segment{Text: text[offsets[plain]:offsets[i]]})
		}
		segs = append(segs, Segment{
			Text:       text[offsets[i]:offsets[end]],
			Term:       e.term,
			Definition: e.definition,
		})
		i, plain = end, end
	}
	if plain < n {
		segs = append(segs, Segment{Text: text[offsets[plain]:]})
	}
	return segs
}

// Terms returns the distinct glossary terms found in text, in order of first
// appearance.
func (a *Annotator) Terms(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range a.Annotate(text) {
		if s.Term == "" || seen[s.Term] {
			continue
		}
		seen[s.Term] = true
		out = append(out, s.Term)
	}
	return out
}

// longestAt returns the first entry, in longest-first order, whose folded form
// starts at rune i, and the rune index just past the match.
func (a *Annotator) longestAt(pieces []string, i int) (entry, int, bool) {
	for _, e := range a.entries {
		if end, ok := matchAt(pieces, i, e.folded); ok {
			return e, end, true
		}
	}
	return entry{}, 0, false
}

func matchAt(pieces []string, i int, folded string) (int, bool) {
	rest := folded
	k := i
	for rest != "" && k < len(pieces) {
		p := pieces[k]
		if p == "" || !strings.HasPrefix(rest, p) {
			return 0, false
		}
		rest = rest[len(p):]
		k++
	}
	return k, rest == "" && k > i
}
