package completion

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
)

// Kind tags a suggestion.
type Kind string

// Suggestion kinds.
const (
	KindKeyword Kind = "keyword"
	KindCatalog Kind = "catalog"
	KindSchema  Kind = "schema"
	KindTable   Kind = "table"
	KindView    Kind = "view"
	KindColumn  Kind = "column"
)

// Suggestion is one completion item.
type Suggestion struct {
	Label      string `json:"label" yaml:"label"`
	Kind       Kind   `json:"kind" yaml:"kind"`
	InsertText string `json:"insertText" yaml:"insert_text"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// matcher does case-insensitive prefix matching against the partial word.
// Not safe for concurrent use; build one per pass.
type matcher struct {
	fold    cases.Caser
	partial string
	prefix  string
	lower   bool
}

func newMatcher(partial string) *matcher {
	fold := cases.Fold()
	return &matcher{
		fold:    fold,
		partial: partial,
		prefix:  fold.String(partial),
		lower:   partial != "" && partial == strings.ToLower(partial),
	}
}

func (m *matcher) match(name string) bool {
	return strings.HasPrefix(m.fold.String(name), m.prefix)
}

func (m *matcher) equal(a, b string) bool {
	return m.fold.String(a) == m.fold.String(b)
}

func keywords(d *dialect.Dialect, m *matcher) []Suggestion {
	var out []Suggestion
	for _, kw := range d.Keywords() {
		if !m.match(kw) {
			continue
		}
		text := kw
		if m.lower {
			text = strings.ToLower(kw)
		}
		out = append(out, Suggestion{Label: text, Kind: KindKeyword, InsertText: text})
	}
	return out
}

func objectKind(o *metadata.Object) Kind {
	switch o.Kind {
	case core.KindCatalog:
		return KindCatalog
	case core.KindSchema:
		return KindSchema
	case core.KindView:
		return KindView
	case core.KindColumn:
		return KindColumn
	default:
		return KindTable
	}
}

func (m *matcher) objects(objects []*metadata.Object, detail string) []Suggestion {
	var out []Suggestion
	for _, o := range objects {
		if !m.match(o.Name) {
			continue
		}
		d := detail
		if o.TypeName != "" {
			d = o.TypeName
		}
		out = append(out, Suggestion{Label: o.Name, Kind: objectKind(o), InsertText: o.Name, Detail: d})
	}
	return out
}
