package match

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/legalaudit"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultShingleSize is the number of consecutive words hashed together.
const DefaultShingleSize = 3

var _ legalaudit.Matcher = (*Matcher)(nil)

// Matcher scores text by how much of each template's wording it contains.
// A score is the share of a template's word shingles that also occur in
// the text, from 0 to 100 with one decimal.
type Matcher struct {
	size int

	mu        sync.Mutex
	templates map[uint64]shingleSet
}

type shingleSet map[uint64]struct{}

// NewMatcher creates a Matcher using word shingles of the given size.
// Sizes below one use DefaultShingleSize.
func NewMatcher(size int) *Matcher {
	if size < 1 {
		size = DefaultShingleSize
	}
	return &Matcher{size: size, templates: make(map[uint64]shingleSet)}
}

// Match scores text against every template in pack, in pack order.
func (m *Matcher) Match(text string, pack *legalaudit.TemplatePack) *legalaudit.MatchResult {
	result := &legalaudit.MatchResult{
		ByTemplate: []float64{},
		Labeled:    []legalaudit.LabeledScore{},
	}
	if pack == nil {
		return result
	}

	page := m.shingles(text)
	for _, t := range pack.Templates {
		score := containment(page, m.templateShingles(t.Text))
		result.ByTemplate = append(result.ByTemplate, score)
		result.Labeled = append(result.Labeled, legalaudit.LabeledScore{Name: t.Name, Score: score})
		result.Best = max(result.Best, score)
	}
	return result
}

// templateShingles memoizes shingle sets by template text hash.
func (m *Matcher) templateShingles(text string) shingleSet {
	key := xxhash.Sum64String(text)
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.templates[key]; ok {
		return s
	}
	s := m.shingles(text)
	m.templates[key] = s
	return s
}

func (m *Matcher) shingles(text string) shingleSet {
	words := Words(text)
	set := make(shingleSet)
	if len(words) == 0 {
		return set
	}
	if len(words) < m.size {
		set[xxhash.Sum64String(strings.Join(words, " "))] = struct{}{}
		return set
	}
	for i := 0; i+m.size <= len(words); i++ {
		set[xxhash.Sum64String(strings.Join(words[i:i+m.size], " "))] = struct{}{}
	}
	return set
}

func containment(page, template shingleSet) float64 {
	if len(template) == 0 {
		return 0
	}
	shared := 0
	for h := range template {
		if _, ok := page[h]; ok {
			shared++
		}
	}
	return math.Round(1000*float64(shared)/float64(len(template))) / 10
}

// Words folds case, strips diacritics and splits text into letter and
// digit runs, so that "Política" and "POLITICA" compare equal.
func Words(text string) []string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = cases.Fold().String(folded)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
