// Package rules gates field-to-template mappings behind condition-matched,
// priority-ordered reusable rules.
package rules

import (
	"regexp"

	"github.com/joseph-ayodele/docufield/internal/entity"
)

// DefaultScoreThreshold is the weighted-evaluation cutoff. At 1.0 the
// weighted mode degenerates to strict AND.
const DefaultScoreThreshold = 1.0

// matchCondition evaluates a single condition against a document snapshot.
// An invalid regex in FieldValueMatches fails the condition rather than the
// whole evaluation.
func matchCondition(cond entity.RuleCondition, doc entity.DocumentPattern) bool {
	switch cond.Kind {
	case entity.CondSupplierEquals:
		return doc.Supplier == cond.Operand
	case entity.CondDocumentTypeEquals:
		return string(doc.DocumentType) == cond.Operand
	case entity.CondTemplateCategoryEquals:
		return doc.TemplateCategory == cond.Operand
	case entity.CondFieldExists:
		return doc.HasField(cond.Operand)
	case entity.CondFieldValueMatches:
		value, ok := doc.FieldValues[cond.Operand]
		if !ok {
			return false
		}
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	default:
		return false
	}
}

// EvaluateRule is the strict form: every condition must match. A rule with no
// conditions matches nothing.
func EvaluateRule(rule entity.MappingRule, doc entity.DocumentPattern) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		if !matchCondition(cond, doc) {
			return false
		}
	}
	return true
}

// EvaluateRuleWeighted scores the rule as the weight-sum of matched conditions
// over the total weight, and matches when the score reaches the threshold.
// Zero-weight conditions count as weight 1.
func EvaluateRuleWeighted(rule entity.MappingRule, doc entity.DocumentPattern, threshold float64) (bool, float64) {
	if len(rule.Conditions) == 0 {
		return false, 0
	}
	var total, matched float64
	for _, cond := range rule.Conditions {
		w := cond.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		if matchCondition(cond, doc) {
			matched += w
		}
	}
	score := matched / total
	return score >= threshold, score
}
