// Package classifier scores document types and detects issuing suppliers from
// raw extracted text. Pure functions of the text with no side effects;
// absence of a match degrades to Unknown rather than erroring.
package classifier

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docufield/constants"
)

// DefaultFloor is the minimum normalized score for a type classification to
// be trusted; below it the caller gets Unknown and should flag for review.
const DefaultFloor = 0.25

type typeSignature struct {
	docType  constants.DocumentType
	keywords []string
	weight   float64
}

// typeSignatures drives ClassifyType. Keywords are matched case-insensitively;
// the per-type score is matched/total * weight, so a type with many niche
// keywords is not penalized against one with a few broad ones.
var typeSignatures = []typeSignature{
	{
		docType:  constants.DocTypeUtilityBill,
		keywords: []string{"account no", "bill date", "total amount due", "meter", "tariff", "usage", "kwh", "deposit", "bill no"},
		weight:   1.0,
	},
	{
		docType:  constants.DocTypeInvoice,
		keywords: []string{"invoice", "invoice no", "invoice date", "bill to", "subtotal", "tax invoice", "payment terms", "due date"},
		weight:   1.0,
	},
	{
		docType:  constants.DocTypeReceipt,
		keywords: []string{"receipt", "cashier", "change", "cash", "thank you", "total", "qty", "item"},
		weight:   0.9,
	},
	{
		docType:  constants.DocTypeBankStatement,
		keywords: []string{"statement", "opening balance", "closing balance", "withdrawal", "deposit", "transaction date", "account summary"},
		weight:   1.0,
	},
}

type Classifier struct {
	floor  float64
	logger *slog.Logger
}

func New(floor float64, logger *slog.Logger) *Classifier {
	if floor <= 0 {
		floor = DefaultFloor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{floor: floor, logger: logger}
}

// ClassifyType returns the highest-scoring document type with its normalized
// score in [0,1], or (Unknown, bestScore) when no type crosses the floor.
func (c *Classifier) ClassifyType(text string) (constants.DocumentType, float64) {
	lower := strings.ToLower(text)

	best := constants.DocTypeUnknown
	bestScore := 0.0
	for _, sig := range typeSignatures {
		matched := 0
		for _, kw := range sig.keywords {
			if strings.Contains(lower, kw) {
				matched++
			}
		}
		score := float64(matched) / float64(len(sig.keywords)) * sig.weight
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			best, bestScore = sig.docType, score
		}
	}

	if bestScore < c.floor {
		c.logger.Debug("classifier.type.ambiguous", "best", best, "score", bestScore, "floor", c.floor)
		return constants.DocTypeUnknown, bestScore
	}
	return best, bestScore
}
