package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docufield/internal/entity"
)

const (
	// contextWindow bounds how far before the corrected value the learner
	// looks for anchor tokens.
	contextWindow = 40
	// anchorTokens is the maximum number of context tokens kept as the anchor.
	anchorTokens = 3
	// initialSuccessRate seeds a brand-new pattern conservatively until
	// confirmations accrue.
	initialSuccessRate = 0.5
	// reviewMargin: an accepted pattern that beats the incumbent by less than
	// this is flagged for manual review.
	reviewMargin = 0.1
)

// Learner converts user corrections and confirmations into new or reinforced
// patterns in the Store, regression-testing candidates against the sample
// corpus before promotion.
type Learner struct {
	store  *Store
	corpus *SampleCorpus
	logger *slog.Logger
}

func NewLearner(store *Store, corpus *SampleCorpus, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{store: store, corpus: corpus, logger: logger}
}

// LearnFromCorrection derives a pattern from a user-corrected field value.
// Idempotent for identical inputs: re-deriving an existing pattern reinforces
// it instead of inserting a duplicate. A candidate that regresses against the
// incumbent on the retained corpus is rejected, never silently applied.
func (l *Learner) LearnFromCorrection(ctx context.Context, supplier, fieldName, text, originalValue, correctValue string) (entity.PatternLearningResult, error) {
	result := entity.PatternLearningResult{}
	correctValue = strings.TrimSpace(correctValue)
	if correctValue == "" {
		result.Warnings = append(result.Warnings, "empty corrected value")
		result.RequiresReview = true
		return result, nil
	}
	if !strings.Contains(text, correctValue) {
		result.Warnings = append(result.Warnings, "corrected value not found in document text")
		result.RequiresReview = true
		return result, nil
	}

	candidate, err := deriveContextPattern(text, correctValue)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.RequiresReview = true
		return result, nil
	}

	// Regression test against retained samples plus the correction itself.
	samples := l.corpus.Samples(ctx, supplier, fieldName)
	evalSet := append([]entity.PatternSample{{
		Supplier: supplier, FieldName: fieldName, Text: text, ExpectedValue: correctValue,
	}}, samples...)

	result.BeforeAccuracy = l.incumbentRate(supplier, fieldName, evalSet)
	result.AfterAccuracy = matchRate(candidate, evalSet)

	// The correction is ground truth regardless of the candidate's fate.
	l.corpus.Add(ctx, entity.PatternSample{
		Supplier: supplier, FieldName: fieldName, Text: text, ExpectedValue: correctValue,
	})

	if result.AfterAccuracy < result.BeforeAccuracy {
		result.RequiresReview = true
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"candidate pattern regresses on corpus: %.2f < %.2f", result.AfterAccuracy, result.BeforeAccuracy))
		l.logger.Info("patterns.learn.rejected",
			"supplier", supplier, "field", fieldName,
			"before", result.BeforeAccuracy, "after", result.AfterAccuracy)
		return result, nil
	}

	if reinforced, ok := l.store.Reinforce(ctx, supplier, fieldName, candidate); ok {
		result.Pattern = &reinforced
		result.Reinforced = true
	} else {
		stored, merged := l.store.Upsert(ctx, entity.LearnedPattern{
			Supplier:    supplier,
			FieldName:   fieldName,
			Pattern:     candidate,
			Priority:    1,
			SuccessRate: initialSuccessRate,
			UsageCount:  1,
			IsActive:    true,
		})
		result.Pattern = &stored
		result.Created = !merged
		result.Reinforced = merged
	}

	if result.BeforeAccuracy > 0 && result.AfterAccuracy-result.BeforeAccuracy < reviewMargin {
		result.RequiresReview = true
		result.Warnings = append(result.Warnings, "regression test barely passed")
	}

	l.logger.Info("patterns.learn.ok",
		"supplier", supplier, "field", fieldName,
		"created", result.Created, "reinforced", result.Reinforced,
		"before", result.BeforeAccuracy, "after", result.AfterAccuracy)
	return result, nil
}

// LearnFromSuccess reinforces whichever active patterns reproduce a value the
// user confirmed as correct. No new pattern is generated.
func (l *Learner) LearnFromSuccess(ctx context.Context, supplier, fieldName, text, value string) (entity.PatternLearningResult, error) {
	result := entity.PatternLearningResult{}
	value = strings.TrimSpace(value)
	if value == "" {
		result.Warnings = append(result.Warnings, "empty confirmed value")
		result.RequiresReview = true
		return result, nil
	}

	l.corpus.Add(ctx, entity.PatternSample{
		Supplier: supplier, FieldName: fieldName, Text: text, ExpectedValue: value,
	})
	evalSet := l.corpus.Samples(ctx, supplier, fieldName)
	result.BeforeAccuracy = l.incumbentRate(supplier, fieldName, evalSet)

	for _, p := range l.store.ListActive(supplier, fieldName) {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		if extractWith(re, text) == value {
			if reinforced, ok := l.store.Reinforce(ctx, supplier, fieldName, p.Pattern); ok {
				result.Pattern = &reinforced
				result.Reinforced = true
			}
			break
		}
	}

	result.AfterAccuracy = l.incumbentRate(supplier, fieldName, evalSet)
	if !result.Reinforced {
		result.Warnings = append(result.Warnings, "no active pattern reproduces the confirmed value")
	}
	return result, nil
}

// incumbentRate is the corpus match rate of the current top-ranked active
// pattern, or 0 when no pattern exists.
func (l *Learner) incumbentRate(supplier, fieldName string, samples []entity.PatternSample) float64 {
	active := l.store.ListActive(supplier, fieldName)
	if len(active) == 0 {
		return 0
	}
	return matchRate(active[0].Pattern, samples)
}

// matchRate is the fraction of samples whose expected value the pattern
// extracts exactly.
func matchRate(patternText string, samples []entity.PatternSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	re, err := regexp.Compile(patternText)
	if err != nil {
		return 0
	}
	hits := 0
	for _, s := range samples {
		if extractWith(re, s.Text) == s.ExpectedValue {
			hits++
		}
	}
	return float64(hits) / float64(len(samples))
}

// extractWith applies a pattern, preferring capture group 1 over the full
// match, and trims the result.
func extractWith(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

// deriveContextPattern builds a regex anchored on the stable tokens preceding
// the value's first occurrence, capturing the value's shape.
func deriveContextPattern(text, value string) (string, error) {
	idx := strings.Index(text, value)
	if idx < 0 {
		return "", fmt.Errorf("value not present in text")
	}
	start := idx - contextWindow
	if start < 0 {
		start = 0
	}
	prefix := text[start:idx]
	if nl := strings.LastIndexByte(prefix, '\n'); nl >= 0 {
		prefix = prefix[nl+1:] // anchor within the value's own line
	}

	tokens := strings.Fields(prefix)
	if len(tokens) > anchorTokens {
		tokens = tokens[len(tokens)-anchorTokens:]
	}
	var anchor string
	if len(tokens) > 0 {
		esc := make([]string, len(tokens))
		for i, t := range tokens {
			esc[i] = regexp.QuoteMeta(t)
		}
		anchor = strings.Join(esc, `\s+`) + `\s*`
	}

	candidate := "(?i)" + anchor + "(" + valueShape(value) + ")"

	re, err := regexp.Compile(candidate)
	if err != nil {
		return "", fmt.Errorf("derived pattern does not compile: %w", err)
	}
	if extractWith(re, text) != value {
		return "", fmt.Errorf("derived pattern does not reproduce the corrected value")
	}
	return candidate, nil
}

var (
	digitsOnlyRe = regexp.MustCompile(`^\d+$`)
	decimalRe    = regexp.MustCompile(`^\d{1,3}(,\d{3})*\.\d{2}$|^\d+\.\d{2}$`)
	dateShapeRe  = regexp.MustCompile(`^\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}$`)
	emailShapeRe = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.\w{2,}$`)
)

// valueShape infers a generalized character-class pattern from the corrected
// value's own format.
func valueShape(value string) string {
	switch {
	case decimalRe.MatchString(value):
		return `(?:\d{1,3}(?:,\d{3})*|\d+)\.\d{2}`
	case digitsOnlyRe.MatchString(value):
		n := len(value)
		lo := n - 2
		if lo < 1 {
			lo = 1
		}
		return fmt.Sprintf(`\d{%d,%d}`, lo, n+2)
	case dateShapeRe.MatchString(value):
		return `\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}`
	case emailShapeRe.MatchString(value):
		return `[\w.+-]+@[\w.-]+\.\w{2,}`
	default:
		return runShape(value)
	}
}

// runShape generalizes arbitrary values run by run: letter runs become
// [A-Za-z]+, digit runs \d+, spaces \s+, everything else is escaped literally.
func runShape(value string) string {
	var b strings.Builder
	runes := []rune(value)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isLetter(r):
			for i < len(runes) && isLetter(runes[i]) {
				i++
			}
			b.WriteString(`[A-Za-z]+`)
		case r >= '0' && r <= '9':
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				i++
			}
			b.WriteString(`\d+`)
		case r == ' ' || r == '\t':
			for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t') {
				i++
			}
			b.WriteString(`\s+`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
			i++
		}
	}
	return b.String()
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
