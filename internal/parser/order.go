// Package parser interprets free-text chat messages into priced line
// items, admin price updates, and confidence scores.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/chat-order-service/internal/catalog"
	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
	"github.com/fairyhunter13/chat-order-service/internal/textutil"
)

// Confidence levels of the interpretation pipeline.
const (
	// ConfidenceNone means no order was detected.
	ConfidenceNone = 0.1
	// ConfidenceExplicit applies when every price was stated literally.
	ConfidenceExplicit = 0.92
	// ConfidenceCatalog applies when any price came from catalog lookup.
	ConfidenceCatalog = 0.76
	// ConfidenceFallback is the flat confidence of the loose interpreter.
	ConfidenceFallback = 0.85
	// FallbackThreshold is the primary confidence at or below which the
	// fallback interpreter is consulted.
	FallbackThreshold = 0.75
)

// explicitMatcher is one named strategy of the explicit-price phase.
// Matchers run in order; every match of every matcher yields an item.
type explicitMatcher struct {
	name string
	re   *regexp.Regexp
}

// Group order is always quantity, product name, price.
var explicitMatchers = []explicitMatcher{
	// "2 saree 1200 each", "3 shirt 650 rs", "2 kurti 1200"
	{name: "qty-name-price-unit", re: regexp.MustCompile(`(?i)(\d+)\s+([a-zA-Z][a-zA-Z\s-]{1,49}?)\s+(\d+)\s*(?:each|per|rs|inr)?`)},
	// "3 shirt @ 650"
	{name: "qty-name-at-price", re: regexp.MustCompile(`(?i)(\d+)\s+([a-zA-Z\s-]{2,50}?)\s*@\s*(\d+)`)},
}

// segmentSplitter breaks a message into item candidates on commas, the
// word "and", and newlines.
var segmentSplitter = regexp.MustCompile(`,|\band\b|\n`)

// catalogItemPattern finds "quantity product-name" with an optional
// leading action verb inside one segment.
var catalogItemPattern = regexp.MustCompile(`(?i)(?:i\s+)?(?:want|need|buy|order|ordered)?\s*(\d+)\s+([a-zA-Z][a-zA-Z\s-]{1,30})`)

// ParseOrder extracts priced line items from a customer message.
//
// Phase 1 collects "qty product price" shapes with literally stated
// prices. Phase 2 runs only when phase 1 found nothing: it splits the
// message into segments and prices each "qty product" shape through the
// catalog; segments without a resolvable price are skipped silently.
func ParseOrder(message string, cat *catalog.Catalog) model.ParseResult {
	var items []model.LineItem
	usedCatalogPrice := false

	for _, m := range explicitMatchers {
		for _, groups := range m.re.FindAllStringSubmatch(message, -1) {
			quantity, _ := strconv.ParseInt(groups[1], 10, 64)
			name := strings.TrimSpace(groups[2])
			price, _ := strconv.ParseInt(groups[3], 10, 64)
			if nameHasFiller(name) {
				// A filler token inside the captured name means the
				// digits were part of a sentence, not an item list.
				obs.Logger.Info("parser_filler_discard", "matcher", m.name, "name", name)
				continue
			}
			items = appendItem(items, name, quantity, price*100)
		}
	}

	if len(items) == 0 {
		for _, segment := range splitSegments(message) {
			groups := catalogItemPattern.FindStringSubmatch(segment)
			if groups == nil {
				continue
			}
			quantity, _ := strconv.ParseInt(groups[1], 10, 64)
			name := strings.TrimSpace(groups[2])
			_, price, ok := cat.Resolve(name)
			if !ok {
				obs.Logger.Info("parser_no_price", "product", name)
				continue
			}
			before := len(items)
			items = appendItem(items, name, quantity, price)
			if len(items) > before {
				usedCatalogPrice = true
			}
		}
	}

	confidence := ConfidenceNone
	if len(items) > 0 {
		if usedCatalogPrice {
			confidence = ConfidenceCatalog
		} else {
			confidence = ConfidenceExplicit
		}
	}

	return model.ParseResult{
		Items:           items,
		TotalAmount:     totalOf(items),
		ConfidenceScore: confidence,
	}
}

// appendItem normalizes the name and drops disqualified candidates:
// empty name, non-positive quantity, or non-positive price.
func appendItem(items []model.LineItem, name string, quantity, unitPrice int64) []model.LineItem {
	normalized := textutil.Normalize(name)
	if normalized == "" || quantity <= 0 || unitPrice <= 0 {
		return items
	}
	return append(items, model.LineItem{Name: normalized, Quantity: quantity, UnitPrice: unitPrice})
}

func splitSegments(message string) []string {
	parts := segmentSplitter.Split(strings.ToLower(message), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// totalOf recomputes the order total; ParseResult totals are never set
// independently of the items.
func totalOf(items []model.LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}
