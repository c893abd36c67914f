// Package config provides configuration loading utilities.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// VocabYAML is the on-disk shape of the domain vocabulary file.
type VocabYAML struct {
	Domains  []string `yaml:"domains"`
	Defaults []string `yaml:"defaults"`
}

// embeddedDomains is the vocabulary used when no file is configured. The
// planner's hardcoded defaults must always be a subset of this list.
var embeddedDomains = []string{
	"Python", "JavaScript", "Java", "Go", "SQL",
	"System Design", "Machine Learning", "Deep Learning", "Data Analysis",
	"Data Structures", "Algorithms", "Databases", "Cloud Computing",
	"DevOps", "APIs", "Statistics", "Operating Systems", "Networking",
	"Security", "Testing",
}

var embeddedDefaults = []string{"Python", "System Design", "Machine Learning", "SQL", "Data Analysis"}

// Vocabulary is the fixed set of allowed interview domain labels.
// Lookup is case-insensitive; labels outside the set are invalid and must
// be discarded by callers, never renamed into the set.
type Vocabulary struct {
	canonical map[string]string
	labels    []string
	defaults  []string
}

// LoadVocabulary builds the vocabulary from a YAML file, or from the
// embedded default set when path is empty.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return newVocabulary(embeddedDomains, embeddedDefaults)
	}
	// #nosec G304 -- Configuration files are expected to be safe
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadVocabulary: read %s: %w", path, err)
	}
	var y VocabYAML
	if err := yaml.Unmarshal(content, &y); err != nil {
		return nil, fmt.Errorf("op=config.LoadVocabulary: parse %s: %w", path, err)
	}
	if len(y.Domains) == 0 {
		return nil, fmt.Errorf("op=config.LoadVocabulary: no domains in %s", path)
	}
	defaults := y.Defaults
	if len(defaults) == 0 {
		defaults = embeddedDefaults
	}
	return newVocabulary(y.Domains, defaults)
}

func newVocabulary(domains, defaults []string) (*Vocabulary, error) {
	v := &Vocabulary{canonical: make(map[string]string, len(domains))}
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		key := strings.ToLower(d)
		if _, dup := v.canonical[key]; dup {
			continue
		}
		v.canonical[key] = d
		v.labels = append(v.labels, d)
	}
	for _, d := range defaults {
		if canon, ok := v.canonical[strings.ToLower(strings.TrimSpace(d))]; ok {
			v.defaults = append(v.defaults, canon)
		}
	}
	if len(v.defaults) == 0 {
		return nil, fmt.Errorf("op=config.LoadVocabulary: defaults all outside the domain set")
	}
	return v, nil
}

// Canonical returns the canonical casing of a known label.
func (v *Vocabulary) Canonical(label string) (string, bool) {
	canon, ok := v.canonical[strings.ToLower(strings.TrimSpace(label))]
	return canon, ok
}

// Defaults returns the fallback domain plan seeds, in order.
func (v *Vocabulary) Defaults() []string {
	return append([]string(nil), v.defaults...)
}

// Labels returns every allowed label, in declaration order.
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}
