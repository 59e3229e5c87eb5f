package classifier

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/dtroode/cipherroom/internal/model"
)

//go:embed default_lexicon.yaml
var defaultLexicon []byte

// DefaultLexicon returns the built-in lexicon model file.
func DefaultLexicon() []byte {
	return append([]byte(nil), defaultLexicon...)
}

// Lexicon is a weighted phrase model stored as YAML.
type Lexicon struct {
	Version    int               `yaml:"version"`
	Categories []LexiconCategory `yaml:"categories"`
}

// LexiconCategory lists the phrases that contribute to one category.
type LexiconCategory struct {
	Label string        `yaml:"label"`
	Terms []LexiconTerm `yaml:"terms"`
}

// LexiconTerm is a phrase and the probability it signals its category.
type LexiconTerm struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// ParseLexicon decodes and validates a lexicon model file.
func ParseLexicon(r io.Reader) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.NewDecoder(r).Decode(&lex); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon: %w", err)
	}
	if len(lex.Categories) == 0 {
		return nil, errors.New("lexicon has no categories")
	}
	for _, c := range lex.Categories {
		if c.Label == "" {
			return nil, errors.New("lexicon category without label")
		}
		for _, t := range c.Terms {
			if normalize(t.Term) == "" {
				return nil, fmt.Errorf("empty term in category %s", c.Label)
			}
			if t.Weight <= 0 || t.Weight > 1 {
				return nil, fmt.Errorf("term %q in category %s has weight %v outside (0, 1]", t.Term, c.Label, t.Weight)
			}
		}
	}
	return &lex, nil
}

// LexiconRuntime loads a lexicon model from object storage.
type LexiconRuntime struct {
	storage model.ObjectStorage
	key     string
}

// NewLexiconRuntime creates a runtime that reads the model stored under key.
func NewLexiconRuntime(storage model.ObjectStorage, key string) *LexiconRuntime {
	return &LexiconRuntime{storage: storage, key: key}
}

// Load downloads the model and keeps only the requested categories, in the
// order they were requested.
func (r *LexiconRuntime) Load(ctx context.Context, _ float64, categories []string) (Model, error) {
	reader, err := r.storage.Download(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to download lexicon %s: %w", r.key, err)
	}
	defer reader.Close()

	lex, err := ParseLexicon(reader)
	if err != nil {
		return nil, err
	}
	return compileLexicon(lex, categories)
}

// SeedLexicon uploads the built-in lexicon under key unless an object exists.
// It reports whether an upload happened.
func SeedLexicon(ctx context.Context, storage model.ObjectStorage, key string) (bool, error) {
	exists, err := storage.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check lexicon %s: %w", key, err)
	}
	if exists {
		return false, nil
	}
	if err := storage.Upload(ctx, key, bytes.NewReader(defaultLexicon)); err != nil {
		return false, fmt.Errorf("failed to upload lexicon %s: %w", key, err)
	}
	return true, nil
}

type compiledTerm struct {
	phrase string
	weight float64
}

type compiledCategory struct {
	label string
	terms []compiledTerm
}

type lexiconModel struct {
	categories []compiledCategory
}

func compileLexicon(lex *Lexicon, categories []string) (*lexiconModel, error) {
	byLabel := make(map[string]LexiconCategory, len(lex.Categories))
	for _, c := range lex.Categories {
		byLabel[c.Label] = c
	}

	m := &lexiconModel{}
	for _, label := range categories {
		c, ok := byLabel[label]
		if !ok {
			continue
		}
		cc := compiledCategory{label: label}
		for _, t := range c.Terms {
			cc.terms = append(cc.terms, compiledTerm{phrase: " " + normalize(t.Term) + " ", weight: t.Weight})
		}
		m.categories = append(m.categories, cc)
	}
	if len(m.categories) == 0 {
		return nil, errors.New("lexicon has none of the requested categories")
	}
	return m, nil
}

// Classify scores every text against every category. A category score is the
// noisy-OR of the weights of the phrases found in the text.
func (m *lexiconModel) Classify(ctx context.Context, texts []string) ([]CategoryResult, error) {
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = " " + normalize(t) + " "
	}

	results := make([]CategoryResult, 0, len(m.categories))
	for _, c := range m.categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores := make([]float64, len(normalized))
		for i, text := range normalized {
			miss := 1.0
			for _, t := range c.terms {
				if strings.Contains(text, t.phrase) {
					miss *= 1 - t.weight
				}
			}
			scores[i] = 1 - miss
		}
		results = append(results, CategoryResult{Label: c.label, Scores: scores})
	}
	return results, nil
}

// normalize lower-cases s and collapses every run of non-alphanumeric
// characters to a single space, so phrases match on word boundaries.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
