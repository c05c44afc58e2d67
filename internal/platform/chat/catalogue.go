package chat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed responses.yaml
var defaultCatalogue []byte

// Entry is one canned reply and the keywords that select it.
type Entry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

type Catalogue struct {
	Greeting string  `yaml:"greeting"`
	Default  string  `yaml:"default"`
	Entries  []Entry `yaml:"entries"`
}

func parseCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse chat responses: %w", err)
	}
	for i, e := range c.Entries {
		if strings.TrimSpace(e.Reply) == "" || len(e.Keywords) == 0 {
			return nil, fmt.Errorf("chat response %d (%s) needs keywords and a reply", i, e.Name)
		}
		for j, k := range e.Keywords {
			c.Entries[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}
	return &c, nil
}

// DefaultCatalogue returns the built-in responses.
func DefaultCatalogue() *Catalogue {
	c, err := parseCatalogue(defaultCatalogue)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalogue reads responses from path, or returns the built-in set when
// path is empty. A file without a greeting or default reply keeps the
// built-in ones.
func LoadCatalogue(path string) (*Catalogue, error) {
	base := DefaultCatalogue()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chat responses: %w", err)
	}
	c, err := parseCatalogue(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Greeting) == "" {
		c.Greeting = base.Greeting
	}
	if strings.TrimSpace(c.Default) == "" {
		c.Default = base.Default
	}
	return c, nil
}

// Match returns the first entry, in catalogue order, with a keyword
// contained in prompt.
func (c *Catalogue) Match(prompt string) (Entry, bool) {
	p := strings.ToLower(prompt)
	for _, e := range c.Entries {
		for _, k := range e.Keywords {
			if k != "" && strings.Contains(p, k) {
				return e, true
			}
		}
	}
	return Entry{}, false
}
