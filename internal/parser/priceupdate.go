package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/textutil"
)

// priceUpdatePattern matches one "product [price] [connector] amount"
// segment. The price must be 2-7 digits in major units; quantity plays
// no part here.
var priceUpdatePattern = regexp.MustCompile(`(?i)^(?:(?:update|set|change|modify|edit)\s+)?(.{1,60}?)\s*(?:\bprice\b|\brate\b)?\s*(?:\bto\b|\bis\b|\bfor\b|=|@|:)?\s*(?:rs\.?|inr)?\s*(\d{2,7})$`)

var (
	leadingActionWords   = map[string]bool{"update": true, "set": true, "change": true, "modify": true, "edit": true}
	trailingConnectWords = map[string]bool{"price": true, "to": true, "is": true, "for": true}
)

// ExtractPriceUpdates detects admin-issued price statements such as
// "update kurti price to 900" or "saree = 1500, dupatta 400". The
// returned slice preserves first-occurrence order, but when a product
// is mentioned twice the last stated price wins.
//
// Callers must gate this on the sender being an admin; customer
// messages never mutate the catalog.
func ExtractPriceUpdates(message string) []model.PriceUpdate {
	var order []string
	latest := make(map[string]int64)

	for _, segment := range splitSegments(message) {
		m := priceUpdatePattern.FindStringSubmatchIndex(segment)
		if m == nil {
			continue
		}
		// The amount must be the whole trailing digit run. A digit right
		// before it means the number has more than seven digits and the
		// name capture swallowed the overflow.
		if m[4] > 0 && segment[m[4]-1] >= '0' && segment[m[4]-1] <= '9' {
			continue
		}
		name := stripUpdateKeywords(segment[m[2]:m[3]])
		normalized := textutil.Normalize(name)
		major, err := strconv.ParseInt(segment[m[4]:m[5]], 10, 64)
		if normalized == "" || err != nil || major <= 0 {
			continue
		}
		if _, seen := latest[normalized]; !seen {
			order = append(order, normalized)
		}
		latest[normalized] = major * 100
	}

	updates := make([]model.PriceUpdate, 0, len(order))
	for _, key := range order {
		updates = append(updates, model.PriceUpdate{NormalizedName: key, UnitPrice: latest[key]})
	}
	return updates
}

// stripUpdateKeywords removes leading action keywords and trailing
// connector keywords from a captured product name.
func stripUpdateKeywords(name string) string {
	tokens := strings.Fields(strings.ToLower(name))
	for len(tokens) > 0 && leadingActionWords[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && trailingConnectWords[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}
