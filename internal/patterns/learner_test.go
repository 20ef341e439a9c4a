package patterns

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docufield/internal/entity"
)

const correctionText = "TENAGA NASIONAL BERHAD\nAccount No: 1234567890123\nTotal Amount Due: RM 245.67\nDue Date: 30/01/2024"

func newLearner() (*Learner, *Store) {
	store := NewStore(nil, nil)
	corpus := NewSampleCorpus(0, nil, nil)
	return NewLearner(store, corpus, nil), store
}

func TestLearnFromCorrectionCreatesWorkingPattern(t *testing.T) {
	ctx := context.Background()
	l, store := newLearner()

	result, err := l.LearnFromCorrection(ctx, "Tenaga Nasional Berhad", "TotalAmountDue",
		correctionText, "45.67", "245.67")
	require.NoError(t, err)
	require.NotNil(t, result.Pattern)
	assert.True(t, result.Created)
	assert.False(t, result.Reinforced)
	assert.Equal(t, initialSuccessRate, result.Pattern.SuccessRate)

	// the derived pattern must reproduce the corrected value on the source text
	re, err := regexp.Compile(result.Pattern.Pattern)
	require.NoError(t, err)
	assert.Equal(t, "245.67", extractWith(re, correctionText))

	assert.Len(t, store.ListActive("Tenaga Nasional Berhad", "TotalAmountDue"), 1)
}

func TestLearnFromCorrectionIdempotent(t *testing.T) {
	ctx := context.Background()
	l, store := newLearner()

	first, err := l.LearnFromCorrection(ctx, "TNB", "TotalAmountDue", correctionText, "45.67", "245.67")
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := l.LearnFromCorrection(ctx, "TNB", "TotalAmountDue", correctionText, "45.67", "245.67")
	require.NoError(t, err)
	assert.False(t, second.Created, "identical correction must reinforce, not duplicate")
	assert.True(t, second.Reinforced)
	assert.Len(t, store.ListActive("TNB", "TotalAmountDue"), 1)
	assert.Greater(t, second.Pattern.SuccessRate, first.Pattern.SuccessRate)
}

func TestLearnFromCorrectionValueNotInText(t *testing.T) {
	ctx := context.Background()
	l, _ := newLearner()

	result, err := l.LearnFromCorrection(ctx, "TNB", "TotalAmountDue", correctionText, "45.67", "999.99")
	require.NoError(t, err)
	assert.Nil(t, result.Pattern)
	assert.True(t, result.RequiresReview)
	assert.NotEmpty(t, result.Warnings)
}

func TestLearnFromCorrectionEmptyValue(t *testing.T) {
	ctx := context.Background()
	l, _ := newLearner()

	result, err := l.LearnFromCorrection(ctx, "TNB", "TotalAmountDue", correctionText, "45.67", "   ")
	require.NoError(t, err)
	assert.Nil(t, result.Pattern)
	assert.True(t, result.RequiresReview)
}

func TestLearnFromCorrectionRejectsRegression(t *testing.T) {
	ctx := context.Background()
	l, store := newLearner()

	// Incumbent that nails the existing corpus.
	store.Upsert(ctx, entity.LearnedPattern{
		Supplier:    "TNB",
		FieldName:   "TotalAmountDue",
		Pattern:     `(?i)total amount due:\s*RM\s*((?:\d{1,3}(?:,\d{3})*|\d+)\.\d{2})`,
		Priority:    5,
		SuccessRate: 0.9,
		IsActive:    true,
	})
	l.corpus.Add(ctx, entity.PatternSample{
		Supplier: "TNB", FieldName: "TotalAmountDue",
		Text: "Total Amount Due: RM 100.00", ExpectedValue: "100.00",
	})
	l.corpus.Add(ctx, entity.PatternSample{
		Supplier: "TNB", FieldName: "TotalAmountDue",
		Text: "Total Amount Due: RM 200.50", ExpectedValue: "200.50",
	})

	// A correction whose derived anchor ("Jumlah Perlu Dibayar") cannot match
	// the retained samples, so the candidate scores below the incumbent.
	result, err := l.LearnFromCorrection(ctx, "TNB", "TotalAmountDue",
		"Jumlah Perlu Dibayar 77.25", "7.25", "77.25")
	require.NoError(t, err)
	assert.True(t, result.RequiresReview)
	assert.Less(t, result.AfterAccuracy, result.BeforeAccuracy)
	assert.Nil(t, result.Pattern, "regressing candidate is rejected")
	assert.Len(t, store.ListActive("TNB", "TotalAmountDue"), 1, "incumbent untouched")
}

func TestLearnFromSuccessReinforces(t *testing.T) {
	ctx := context.Background()
	l, store := newLearner()

	stored, _ := store.Upsert(ctx, entity.LearnedPattern{
		Supplier:    "TNB",
		FieldName:   "TotalAmountDue",
		Pattern:     `(?i)total amount due:\s*RM\s*(\d+\.\d{2})`,
		Priority:    1,
		SuccessRate: 0.5,
		IsActive:    true,
	})

	result, err := l.LearnFromSuccess(ctx, "TNB", "TotalAmountDue", correctionText, "245.67")
	require.NoError(t, err)
	assert.True(t, result.Reinforced)
	require.NotNil(t, result.Pattern)
	assert.Equal(t, stored.ID, result.Pattern.ID)
	assert.Greater(t, result.Pattern.SuccessRate, 0.5)
}

func TestDeriveContextPatternAnchorsOnLine(t *testing.T) {
	p, err := deriveContextPattern(correctionText, "1234567890123")
	require.NoError(t, err)
	re := regexp.MustCompile(p)
	assert.Equal(t, "1234567890123", extractWith(re, correctionText))
	// the anchor stays on the value's own line, so unrelated lines can't bleed in
	assert.NotContains(t, p, "TENAGA")
}

func TestValueShape(t *testing.T) {
	tests := []struct {
		value string
		match []string
		miss  []string
	}{
		{value: "245.67", match: []string{"245.67", "1,234.50"}, miss: []string{"245", "a.bc"}},
		{value: "1234567890123", match: []string{"1234567890123", "123456789012345"}, miss: []string{"12"}},
		{value: "30/01/2024", match: []string{"30/01/2024", "1-2-2024"}, miss: []string{"january"}},
		{value: "a@b.co", match: []string{"billing@example.com"}, miss: []string{"not-an-email"}},
		{value: "INV-2024", match: []string{"ABC-1234"}, miss: []string{"INV 2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			re := regexp.MustCompile("^(?:" + valueShape(tt.value) + ")$")
			for _, m := range tt.match {
				assert.True(t, re.MatchString(m), "%q should match shape of %q", m, tt.value)
			}
			for _, m := range tt.miss {
				assert.False(t, re.MatchString(m), "%q should not match shape of %q", m, tt.value)
			}
		})
	}
}
