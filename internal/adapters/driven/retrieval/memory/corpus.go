// Package memory provides in-memory retrieval backends for the text, facts
// and graph sources, loaded from a TOML corpus file.
//
// The corpus file has three optional table arrays:
//
//	[[passages]]
//	key = "paris"
//	text = "Paris is the capital and largest city of France."
//
//	[[facts]]
//	subject = "Paris"
//	predicate = "population"
//	object = "2.1 million"
//	confidence = 0.95
//
//	[[relations]]
//	from = "Paris"
//	relation = "capital of"
//	to = "France"
//	weight = 0.9
package memory

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Passage is a free-text document.
type Passage struct {
	Key  string `toml:"key"`
	Text string `toml:"text"`
}

// Fact is a subject-predicate-object record.
type Fact struct {
	Key        string  `toml:"key"`
	Subject    string  `toml:"subject"`
	Predicate  string  `toml:"predicate"`
	Object     string  `toml:"object"`
	Confidence float64 `toml:"confidence"`
}

// Statement renders the fact as a sentence.
func (f Fact) Statement() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s.", f.Subject, f.Predicate, f.Object))
}

// Relation is a weighted directed edge between two entities.
type Relation struct {
	From     string  `toml:"from"`
	Relation string  `toml:"relation"`
	To       string  `toml:"to"`
	Weight   float64 `toml:"weight"`
}

// Corpus is the content served by the in-memory backends.
type Corpus struct {
	Passages  []Passage  `toml:"passages"`
	Facts     []Fact     `toml:"facts"`
	Relations []Relation `toml:"relations"`
}

// LoadCorpus reads a TOML corpus file. An empty path returns an empty corpus.
func LoadCorpus(path string) (*Corpus, error) {
	if path == "" {
		return &Corpus{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return ParseCorpus(data)
}

// ParseCorpus decodes a TOML corpus and fills in defaults.
func ParseCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}

	for i := range c.Passages {
		p := &c.Passages[i]
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("passage %d: text is required", i+1)
		}
		if p.Key == "" {
			p.Key = fmt.Sprintf("passage-%d", i+1)
		}
	}
	for i := range c.Facts {
		f := &c.Facts[i]
		if f.Subject == "" || f.Predicate == "" {
			return nil, fmt.Errorf("fact %d: subject and predicate are required", i+1)
		}
		if f.Key == "" {
			f.Key = "fact:" + strings.ToLower(f.Subject) + ":" + strings.ToLower(f.Predicate)
		}
		if f.Confidence <= 0 {
			f.Confidence = 1
		}
	}
	for i := range c.Relations {
		r := &c.Relations[i]
		if r.From == "" || r.To == "" {
			return nil, fmt.Errorf("relation %d: from and to are required", i+1)
		}
		if r.Weight <= 0 {
			r.Weight = 1
		}
	}
	return &c, nil
}

// Backends builds the three backends over the corpus.
func (c *Corpus) Backends() (*TextBackend, *FactsBackend, *GraphBackend) {
	return NewTextBackend(c.Passages), NewFactsBackend(c.Facts), NewGraphBackend(c.Relations)
}
