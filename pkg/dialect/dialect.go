// Package dialect provides SQL dialect descriptors for the tokenizer and
// clause parser.
//
// A dialect decides which characters quote identifiers, which extra words
// are keywords, and which keyword runs open a clause. Built-in dialects are
// registered at package load time; callers look them up by name with Get.
package dialect

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlcomplete/pkg/token"
)

// ClauseDef describes a keyword run that opens a clause, e.g. INSERT IGNORE INTO.
type ClauseDef struct {
	Name   string            // canonical upper-case name, words separated by one space
	Tokens []token.TokenType // the keyword run that must match in order
}

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name    string
	Aliases []string

	// Characters that open a quoted identifier. The closing character is the
	// same, except '[' which closes with ']'.
	IdentifierQuotes []byte

	keywords   map[string]token.TokenType // dialect-only keywords
	clauses    []ClauseDef                // longest first
	completion []string                   // keywords offered by completion
}

// LookupKeyword returns the token type of a dialect-only keyword.
func (d *Dialect) LookupKeyword(name string) (token.TokenType, bool) {
	t, ok := d.keywords[strings.ToLower(name)]
	return t, ok
}

// Clauses returns the clause openers, longest keyword run first.
func (d *Dialect) Clauses() []ClauseDef {
	return d.clauses
}

// IsIdentifierQuote reports whether ch opens a quoted identifier.
func (d *Dialect) IsIdentifierQuote(ch byte) bool {
	for _, q := range d.IdentifierQuotes {
		if q == ch {
			return true
		}
	}
	return false
}

// Keywords returns the keywords offered by completion, sorted.
func (d *Dialect) Keywords() []string {
	out := make([]string, len(d.completion))
	copy(out, d.completion)
	return out
}

// Unquote strips the outer identifier quotes from s and collapses doubled
// closing quotes inside. An unterminated identifier loses only its opening
// quote.
func (d *Dialect) Unquote(s string) string {
	if s == "" {
		return s
	}
	var closing byte
	switch s[0] {
	case '"', '`':
		closing = s[0]
	case '[':
		if !d.IsIdentifierQuote('[') {
			return s
		}
		closing = ']'
	default:
		return s
	}
	inner := s[1:]
	if n := len(inner); n > 0 && inner[n-1] == closing && !escapedAt(inner, n-1, closing) {
		inner = inner[:n-1]
	}
	if closing == ']' {
		return inner
	}
	q := string(closing)
	return strings.ReplaceAll(inner, q+q, q)
}

// escapedAt reports whether the quote at i closes a doubled pair, counting
// the run of quotes that ends at i.
func escapedAt(s string, i int, quote byte) bool {
	run := 0
	for ; i >= 0 && s[i] == quote; i-- {
		run++
	}
	return run%2 == 0
}

// Builder constructs a Dialect.
type Builder struct {
	d        *Dialect
	keywords map[string]struct{}
}

// NewDialect starts building a dialect with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		d: &Dialect{
			Name:             strings.ToLower(name),
			IdentifierQuotes: []byte{'"'},
			keywords:         make(map[string]token.TokenType),
		},
		keywords: make(map[string]struct{}),
	}
}

// Aliases adds alternative names the dialect is registered under.
func (b *Builder) Aliases(names ...string) *Builder {
	for _, n := range names {
		b.d.Aliases = append(b.d.Aliases, strings.ToLower(n))
	}
	return b
}

// IdentifierQuotes sets the characters that open a quoted identifier.
func (b *Builder) IdentifierQuotes(quotes ...byte) *Builder {
	b.d.IdentifierQuotes = quotes
	return b
}

// Keywords registers dialect-only keywords.
func (b *Builder) Keywords(words ...string) *Builder {
	for _, w := range words {
		b.d.keywords[strings.ToLower(w)] = token.Register(w)
	}
	return b
}

// Clauses adds clause openers. Each entry is a space-separated keyword run.
// Words that are neither builtin nor dialect keywords are registered as
// dialect keywords.
func (b *Builder) Clauses(runs ...string) *Builder {
	for _, run := range runs {
		words := strings.Fields(strings.ToUpper(run))
		def := ClauseDef{Name: strings.Join(words, " ")}
		for _, w := range words {
			t := token.LookupIdent(strings.ToLower(w))
			if t == token.IDENT {
				if dt, ok := b.d.keywords[strings.ToLower(w)]; ok {
					t = dt
				} else {
					t = token.Register(w)
					b.d.keywords[strings.ToLower(w)] = t
				}
			}
			def.Tokens = append(def.Tokens, t)
		}
		b.d.clauses = append(b.d.clauses, def)
		b.addCompletion(def.Name)
	}
	return b
}

// CompletionKeywords adds keywords offered by completion.
func (b *Builder) CompletionKeywords(words ...string) *Builder {
	for _, w := range words {
		b.addCompletion(strings.ToUpper(w))
	}
	return b
}

func (b *Builder) addCompletion(word string) {
	if _, ok := b.keywords[word]; ok {
		return
	}
	b.keywords[word] = struct{}{}
	b.d.completion = append(b.d.completion, word)
}

// Build finalizes the dialect.
func (b *Builder) Build() *Dialect {
	sort.SliceStable(b.d.clauses, func(i, j int) bool {
		return len(b.d.clauses[i].Tokens) > len(b.d.clauses[j].Tokens)
	})
	sort.Strings(b.d.completion)
	return b.d
}
