package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/chat-order-service/internal/obs"
)

// LooseItem is an unpriced product mention found by the loose
// interpreter; pricing is the caller's responsibility.
type LooseItem struct {
	Name     string
	Quantity int64
}

// LooseInterpretation is the outcome of the loose interpreter.
type LooseInterpretation struct {
	Items          []LooseItem
	Confidence     float64
	Interpretation string
}

// clauseSplitter separates multi-item Hinglish orders:
// "mujhe 2 kurti chahiye aur 1 dupatta" becomes two clauses.
var clauseSplitter = regexp.MustCompile(`(?i)\s+(?:and|aur)\s+`)

// quantityWordPattern finds "quantity word" with optional Hindi filler
// in front.
var quantityWordPattern = regexp.MustCompile(`(?i)(?:mujhe|chahiye|humko)?\s*(\d+)\s+([a-zA-Z]+)`)

// InterpretLoosely catches orders phrased in ways the rigid explicit
// patterns miss, especially hybrid-language messages. Each clause is
// searched for a "quantity word" shape; the word is matched against the
// known product vocabulary with the exact, containment, and prefix
// tiers. A product already matched earlier in the message is not
// produced twice.
func InterpretLoosely(message string, knownProducts []string) LooseInterpretation {
	var items []LooseItem
	matched := make(map[string]bool)

	for _, clause := range clauseSplitter.Split(message, -1) {
		groups := quantityWordPattern.FindStringSubmatch(clause)
		if groups == nil {
			continue
		}
		quantity, _ := strconv.ParseInt(groups[1], 10, 64)
		word := strings.ToLower(groups[2])
		if quantity <= 0 {
			continue
		}
		if isFillerWord(word) {
			// The captured word was a trailing filler, not a product.
			continue
		}
		product, ok := matchVocabulary(word, knownProducts)
		if !ok || matched[product] {
			obs.Logger.Info("loose_parser_skip", "word", word, "matched", ok)
			continue
		}
		matched[product] = true
		items = append(items, LooseItem{Name: product, Quantity: quantity})
	}

	confidence := ConfidenceNone
	if len(items) > 0 {
		confidence = ConfidenceFallback
	}
	return LooseInterpretation{Items: items, Confidence: confidence, Interpretation: message}
}

// matchVocabulary resolves a single word against the known product
// names: exact match, containment in either direction, then a
// three-character prefix check. Vocabulary order decides ties; callers
// pass sorted names for determinism.
func matchVocabulary(word string, known []string) (string, bool) {
	for _, k := range known {
		if k == word {
			return k, true
		}
	}
	for _, k := range known {
		if strings.Contains(k, word) || strings.Contains(word, k) {
			return k, true
		}
	}
	if len(word) >= 3 {
		prefix := word[:3]
		for _, k := range known {
			if strings.HasPrefix(k, prefix) {
				return k, true
			}
		}
	}
	return "", false
}
