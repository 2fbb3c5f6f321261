package words

import (
	"sort"
	"sync"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/dshills/typeahead/internal/complete"
	"github.com/dshills/typeahead/internal/host"
	"github.com/dshills/typeahead/internal/logger"
)

// DefaultMaxItems caps one answer's size.
const DefaultMaxItems = 50

// Provider suggests words found in the host buffer. The index is a
// patricia trie keyed by word, rebuilt lazily after each Reset.
type Provider struct {
	mu   sync.Mutex
	h    host.Host
	log  *log.Logger
	max  int
	trie *patricia.Trie
}

// Option configures a Provider.
type Option func(*Provider)

// WithMaxItems caps the number of suggestions per answer.
func WithMaxItems(n int) Option {
	return func(p *Provider) { p.max = n }
}

// WithLogger installs a logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New creates a buffer-words provider over h.
func New(h host.Host, opts ...Option) *Provider {
	p := &Provider{
		h:   h,
		log: logger.Discard("words"),
		max: DefaultMaxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string { return "words" }

// IsAvailable reports whether a buffer is attached.
func (p *Provider) IsAvailable() bool { return p.h != nil }

// Complete answers with buffer words sharing the context's keyword
// prefix, most frequent first. The answer is flagged incomplete when it
// hits the item cap.
func (p *Provider) Complete(ctx *complete.Context, done func(complete.Result)) {
	prefix := ctx.WordPrefix()
	if prefix == "" {
		done(complete.Result{})
		return
	}

	type hit struct {
		word string
		freq int
	}
	var hits []hit

	p.mu.Lock()
	if p.trie == nil {
		p.trie = p.index()
	}
	err := p.trie.VisitSubtree(patricia.Prefix(prefix), func(key patricia.Prefix, item patricia.Item) error {
		word := string(key)
		if word == prefix {
			return nil
		}
		freq, _ := item.(int)
		hits = append(hits, hit{word: word, freq: freq})
		return nil
	})
	p.mu.Unlock()

	if err != nil {
		p.log.Error("trie visit failed", "err", err)
		done(complete.Result{Err: err})
		return
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].freq != hits[j].freq {
			return hits[i].freq > hits[j].freq
		}
		return hits[i].word < hits[j].word
	})

	incomplete := false
	if len(hits) > p.max {
		hits = hits[:p.max]
		incomplete = true
	}

	items := make([]complete.Item, len(hits))
	for i, h := range hits {
		items[i] = complete.Item{Label: h.word}
	}
	done(complete.Result{Items: items, Incomplete: incomplete})
}

// Reset drops the index; the next Complete rebuilds it from the live
// buffer.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.trie = nil
	p.mu.Unlock()
}

// index builds a word-to-frequency trie from every buffer line.
func (p *Provider) index() *patricia.Trie {
	trie := patricia.NewTrie()
	for row := 0; row < p.h.LineCount(); row++ {
		for _, word := range splitWords(p.h.Line(row)) {
			key := patricia.Prefix(word)
			if item := trie.Get(key); item != nil {
				trie.Set(key, item.(int)+1)
			} else {
				trie.Insert(key, 1)
			}
		}
	}
	return trie
}

// splitWords extracts keyword runs from a line.
func splitWords(line string) []string {
	var words []string
	var cur []rune
	for _, r := range line {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur = append(cur, r)
			continue
		}
		if len(cur) > 1 {
			words = append(words, string(cur))
		}
		cur = cur[:0]
	}
	if len(cur) > 1 {
		words = append(words, string(cur))
	}
	return words
}
