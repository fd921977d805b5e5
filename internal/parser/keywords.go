package parser

import (
	"strings"

	"github.com/orsinium-labs/stopwords"
)

// hinglishFillers are discourse particles ("want", "and", "please")
// that show up inside conversational order messages. A captured product
// name containing one of these is a sentence fragment, not a product.
var hinglishFillers = map[string]bool{
	"mujhe":   true,
	"chahiye": true,
	"humko":   true,
	"aur":     true,
	"and":     true,
	"please":  true,
	"plz":     true,
}

// hinglishMarkers flag a message as hybrid-language, which makes the
// fallback interpreter worth consulting even when the primary extractor
// is confident.
var hinglishMarkers = map[string]bool{
	"mujhe":   true,
	"chahiye": true,
	"humko":   true,
	"aur":     true,
}

var englishStopwords = stopwords.MustGet("en")

// isFillerWord reports whether a single token is a Hinglish filler or a
// plain English stopword.
func isFillerWord(word string) bool {
	if hinglishFillers[word] {
		return true
	}
	return englishStopwords.Contains(word)
}

// nameHasFiller reports whether any token of a captured product name is
// a Hinglish filler.
func nameHasFiller(name string) bool {
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		if hinglishFillers[tok] {
			return true
		}
	}
	return false
}

// ContainsHinglishMarker reports whether a message carries
// hybrid-language connector words.
func ContainsHinglishMarker(message string) bool {
	for _, tok := range strings.Fields(strings.ToLower(message)) {
		if hinglishMarkers[strings.Trim(tok, ".,!?")] {
			return true
		}
	}
	return false
}
