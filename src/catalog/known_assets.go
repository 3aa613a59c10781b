package catalog

import (
	"strings"
)

// Catalog is the fixed list of symbols a user can pick from.
type Catalog struct {
	symbols []string
}

func New(symbols []string) *Catalog {
	seen := make(map[string]bool, len(symbols))
	c := &Catalog{symbols: make([]string, 0, len(symbols))}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		c.symbols = append(c.symbols, s)
	}
	return c
}

// All returns a copy of the known symbols.
func (c *Catalog) All() []string {
	return append([]string{}, c.symbols...)
}

// Filter keeps symbols containing query, ignoring case, in list order.
func (c *Catalog) Filter(query string) []string {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}

	out := []string{}
	for _, s := range c.symbols {
		if strings.Contains(s, q) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Contains(symbol string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, known := range c.symbols {
		if known == s {
			return true
		}
	}
	return false
}
