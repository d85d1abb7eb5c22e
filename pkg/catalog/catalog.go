// Package catalog holds the static list of medication search terms and the
// reference metadata for each one.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata describes a medication family.
type Metadata struct {
	Manufacturer   string `yaml:"manufacturer" json:"manufacturer"`
	Category       string `yaml:"category" json:"category"`
	TargetSpecies  string `yaml:"species" json:"target_species"`
	SizeClass      string `yaml:"size_class" json:"size_class"`
	EfficacyWindow string `yaml:"efficacy" json:"efficacy_window"`
}

// Unknown is returned by Lookup for terms without an entry.
var Unknown = Metadata{
	Manufacturer:   "N/A",
	Category:       "N/A",
	TargetSpecies:  "N/A",
	SizeClass:      "N/A",
	EfficacyWindow: "N/A",
}

// Entry pairs a search term with its metadata.
type Entry struct {
	Term     string `yaml:"term"`
	Metadata `yaml:",inline"`
}

// Catalog is an ordered, read-only set of entries. The zero value is an
// empty catalog.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New builds a catalog from entries in scan order. Duplicate terms keep the
// first entry.
func New(entries []Entry) *Catalog {
	c := &Catalog{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		e.Term = strings.TrimSpace(e.Term)
		if e.Term == "" {
			continue
		}
		if _, dup := c.index[e.Term]; dup {
			continue
		}
		c.index[e.Term] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

type fileFormat struct {
	Terms []Entry `yaml:"terms"`
}

// Load reads a catalog from a YAML file of the form
//
//	terms:
//	  - term: Bravecto
//	    manufacturer: MSD Saúde Animal
//	    category: Antipulgas e Carrapatos
//	    species: Cães e Gatos
//	    size_class: Todos os portes
//	    efficacy: 90 dias
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //#nosec G304
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Terms) == 0 {
		return nil, fmt.Errorf("catalog %s has no terms", path)
	}

	return New(f.Terms), nil
}

// Terms returns the search terms in scan order. The slice is a copy.
func (c *Catalog) Terms() []string {
	terms := make([]string, len(c.entries))
	for i, e := range c.entries {
		terms[i] = e.Term
	}
	return terms
}

// Len returns the number of terms.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the metadata for term. It never fails: unknown terms get
// Unknown, and blank fields of a known entry ("") are filled from Unknown.
func (c *Catalog) Lookup(term string) Metadata {
	if i, ok := c.index[term]; ok {
		return fill(c.entries[i].Metadata)
	}
	for _, e := range c.entries {
		if strings.EqualFold(e.Term, term) {
			return fill(e.Metadata)
		}
	}
	return Unknown
}

func fill(m Metadata) Metadata {
	if m.Manufacturer == "" {
		m.Manufacturer = Unknown.Manufacturer
	}
	if m.Category == "" {
		m.Category = Unknown.Category
	}
	if m.TargetSpecies == "" {
		m.TargetSpecies = Unknown.TargetSpecies
	}
	if m.SizeClass == "" {
		m.SizeClass = Unknown.SizeClass
	}
	if m.EfficacyWindow == "" {
		m.EfficacyWindow = Unknown.EfficacyWindow
	}
	return m
}
