// Package catalog builds the per-message price lookup table and
// resolves product names against it.
//
// The catalog is a derived, in-memory view assembled fresh for every
// incoming message: persisted per-business prices are seeded first and
// prices observed in historical orders overwrite them, so the most
// recent transaction price wins over a stale catalog entry.
package catalog

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/coregx/ahocorasick"

	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
	"github.com/fairyhunter13/chat-order-service/internal/textutil"
)

// fuzzyThreshold is the minimum normalized Levenshtein similarity for
// the last lookup tier.
const fuzzyThreshold = 0.72

// Catalog maps normalized product names to unit prices in paise.
type Catalog struct {
	prices map[string]int64
	keys   []string // sorted, for deterministic approximate matching
	ac     *ahocorasick.Automaton
}

// Build merges persisted business prices with prices seen in historical
// order items. Later sources override earlier ones per normalized key.
// Entries with an empty key or a non-positive price are ignored.
func Build(persisted []model.ProductPrice, orders []model.Order) *Catalog {
	c := &Catalog{prices: make(map[string]int64)}
	for _, p := range persisted {
		if p.NormalizedName == "" || p.UnitPrice <= 0 {
			continue
		}
		c.prices[p.NormalizedName] = p.UnitPrice
	}
	for _, o := range orders {
		for _, it := range o.Items {
			key := textutil.Normalize(it.Name)
			if key == "" || it.UnitPrice <= 0 {
				continue
			}
			c.prices[key] = it.UnitPrice
		}
	}
	c.compile()
	return c
}

// Set overwrites one entry, used to reflect admin price updates into the
// in-memory view for the remainder of the current message.
func (c *Catalog) Set(normalizedName string, unitPrice int64) {
	if normalizedName == "" || unitPrice <= 0 {
		return
	}
	c.prices[normalizedName] = unitPrice
	c.compile()
}

// compile rebuilds the sorted key list and the Aho-Corasick automaton
// used by the substring tier. Catalogs are small; rebuilding on every
// mutation is cheaper than tracking staleness.
func (c *Catalog) compile() {
	c.keys = make([]string, 0, len(c.prices))
	for k := range c.prices {
		c.keys = append(c.keys, k)
	}
	sort.Strings(c.keys)

	c.ac = nil
	if len(c.keys) == 0 {
		return
	}
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(c.keys).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		// The sorted-key scan below still covers this tier.
		obs.Logger.Warn("catalog_automaton_build_failed", "error", err)
		return
	}
	c.ac = automaton
}

// Lookup returns the price for an already-normalized key.
func (c *Catalog) Lookup(normalizedName string) (int64, bool) {
	p, ok := c.prices[normalizedName]
	return p, ok
}

// Resolve finds a price for a raw product name using the three-tier
// strategy: exact key match, substring containment in either direction,
// then prefix or edit-distance similarity. It returns the matched key
// and price, or false when nothing matches; a miss is not an error.
func (c *Catalog) Resolve(raw string) (string, int64, bool) {
	q := textutil.Normalize(raw)
	if q == "" || len(c.prices) == 0 {
		return "", 0, false
	}

	if p, ok := c.prices[q]; ok {
		return q, p, true
	}

	// Substring tier: catalog keys occurring inside the query are found
	// in one automaton pass; the reverse direction needs a key scan.
	if c.ac != nil {
		if ms := c.ac.FindAllOverlapping([]byte(q)); len(ms) > 0 {
			key := c.keys[ms[0].PatternID]
			return key, c.prices[key], true
		}
	}
	for _, key := range c.keys {
		if strings.Contains(key, q) {
			return key, c.prices[key], true
		}
	}

	// Prefix tier: the first three characters of the query match the
	// start of a key.
	if len(q) >= 3 {
		prefix := q[:3]
		for _, key := range c.keys {
			if strings.HasPrefix(key, prefix) {
				return key, c.prices[key], true
			}
		}
	}

	// Fuzzy tier: best normalized Levenshtein similarity above a fixed
	// threshold; ties resolve to the lexicographically smallest key
	// because keys are scanned in sorted order.
	bestKey := ""
	bestScore := 0.0
	for _, key := range c.keys {
		score := similarity(q, key)
		if score >= fuzzyThreshold && score > bestScore {
			bestKey = key
			bestScore = score
		}
	}
	if bestKey != "" {
		return bestKey, c.prices[bestKey], true
	}

	return "", 0, false
}

// Names returns the normalized product vocabulary in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Size returns the number of catalog entries.
func (c *Catalog) Size() int { return len(c.prices) }

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
