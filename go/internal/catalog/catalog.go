package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	// ErrEmptyCatalog is returned when a catalog file defines no pairs
	ErrEmptyCatalog = errors.New("catalog has no pairs")
	// ErrDuplicatePair is returned when two pairs share an identifier
	ErrDuplicatePair = errors.New("duplicate pair id")
	// ErrIncompletePair is returned when a pair is missing one of its halves
	ErrIncompletePair = errors.New("pair is missing a half")
)

// Pair is one catalog entry: an affirmative half and its contrasting half
type Pair struct {
	ID       string `yaml:"id"`
	Affirm   string `yaml:"yes"`
	Contrast string `yaml:"no"`
}

// Catalog is the static, ordered set of pairs available to every party.
// It is immutable after loading and safe to share between rooms.
type Catalog struct {
	pairs []Pair
	byID  map[string]int
}

type catalogFile struct {
	Pairs []Pair `yaml:"pairs"`
}

// Default returns the catalog embedded in the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a YAML catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document. Pairs without an id get a
// zero-padded position-based id ("001", "002", ...).
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Pairs) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		pairs: make([]Pair, 0, len(file.Pairs)),
		byID:  make(map[string]int, len(file.Pairs)),
	}
	for i, p := range file.Pairs {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = fmt.Sprintf("%03d", i+1)
		}
		p.Affirm = strings.TrimSpace(p.Affirm)
		p.Contrast = strings.TrimSpace(p.Contrast)
		if p.Affirm == "" || p.Contrast == "" {
			return nil, fmt.Errorf("pair %s: %w", p.ID, ErrIncompletePair)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("pair %s: %w", p.ID, ErrDuplicatePair)
		}
		c.byID[p.ID] = len(c.pairs)
		c.pairs = append(c.pairs, p)
	}
	return c, nil
}

// Len returns the number of pairs
func (c *Catalog) Len() int {
	return len(c.pairs)
}

// Pairs returns a copy of the pairs in catalog order
func (c *Catalog) Pairs() []Pair {
	out := make([]Pair, len(c.pairs))
	copy(out, c.pairs)
	return out
}
