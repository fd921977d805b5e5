package parser

import (
	"github.com/fairyhunter13/chat-order-service/internal/catalog"
	"github.com/fairyhunter13/chat-order-service/internal/model"
	"github.com/fairyhunter13/chat-order-service/internal/obs"
)

// Interpreter is the common contract of message interpreters: parse a
// message given a price catalog, return priced items plus confidence.
type Interpreter interface {
	Name() string
	Parse(message string, cat *catalog.Catalog) model.ParseResult
}

// Explicit is the primary interpreter built on the matcher cascade.
type Explicit struct{}

func (Explicit) Name() string { return "explicit" }

func (Explicit) Parse(message string, cat *catalog.Catalog) model.ParseResult {
	return ParseOrder(message, cat)
}

// Loose wraps the Hinglish interpreter and prices its items through the
// catalog; items that fail price resolution are dropped.
type Loose struct{}

func (Loose) Name() string { return "loose" }

func (Loose) Parse(message string, cat *catalog.Catalog) model.ParseResult {
	loose := InterpretLoosely(message, cat.Names())
	var items []model.LineItem
	for _, it := range loose.Items {
		_, price, ok := cat.Resolve(it.Name)
		if !ok {
			obs.Logger.Info("loose_parser_no_price", "product", it.Name)
			continue
		}
		items = appendItem(items, it.Name, it.Quantity, price)
	}
	confidence := ConfidenceNone
	if len(items) > 0 {
		confidence = loose.Confidence
	}
	return model.ParseResult{
		Items:           items,
		TotalAmount:     totalOf(items),
		ConfidenceScore: confidence,
	}
}

// Arbitrator decides whether the fallback interpreter should run and
// whether its result replaces the primary one.
type Arbitrator struct {
	Enabled   bool
	Fallback  Interpreter
	Threshold float64
}

// NewArbitrator builds an Arbitrator over the Loose interpreter with
// the standard confidence threshold.
func NewArbitrator(enabled bool) *Arbitrator {
	return &Arbitrator{Enabled: enabled, Fallback: Loose{}, Threshold: FallbackThreshold}
}

// Arbitrate returns the better of the primary result and the fallback
// interpretation. The fallback is consulted only for customer messages,
// only when enabled, and only when the primary confidence is at or
// below the threshold or the message carries hybrid-language markers.
// The fallback result wins only when it produced at least one priced
// item with strictly higher confidence; any internal fallback failure
// keeps the primary result.
func (a *Arbitrator) Arbitrate(message string, cat *catalog.Catalog, role model.SenderRole, primary model.ParseResult) model.ParseResult {
	if !a.Enabled || role != model.RoleCustomer {
		return primary
	}
	if primary.ConfidenceScore > a.Threshold && !ContainsHinglishMarker(message) {
		return primary
	}

	alternative, ok := a.tryFallback(message, cat)
	if !ok {
		return primary
	}
	if len(alternative.Items) > 0 && alternative.ConfidenceScore > primary.ConfidenceScore {
		obs.Logger.Info("fallback_replaced_primary",
			"interpreter", a.Fallback.Name(),
			"primary_confidence", primary.ConfidenceScore,
			"fallback_confidence", alternative.ConfidenceScore,
			"items", len(alternative.Items),
		)
		return alternative
	}
	return primary
}

// tryFallback shields the pipeline from interpreter failures; a panic
// is logged and reported as "no result".
func (a *Arbitrator) tryFallback(message string, cat *catalog.Catalog) (res model.ParseResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			obs.Logger.Error("fallback_interpreter_error", "error", r)
			ok = false
		}
	}()
	return a.Fallback.Parse(message, cat), true
}
