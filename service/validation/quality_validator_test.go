package validation

import (
	"testing"
	"time"

	"datacontract-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newQualityValidator(t *testing.T, rules models.QualityRuleSet) *QualityValidator {
	t.Helper()
	v, err := NewQualityValidator(rules, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return v
}

func TestQualityValidator_NoRules(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{})

	result := v.Validate([]map[string]interface{}{{"a": 1}})

	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.RulesEvaluated)
	assert.Equal(t, 100.0, result.QualityScore)
}

func TestQualityValidator_Freshness(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Freshness: &models.FreshnessRule{MaxLatencyHours: 24},
	})

	fresh := v.Validate([]map[string]interface{}{
		{"timestamp": fixedNow.Add(-2 * time.Hour).Format(time.RFC3339)},
		{"id": 1},
	})
	assert.True(t, fresh.Passed)

	stale := v.Validate([]map[string]interface{}{
		{"timestamp": fixedNow.Add(-2 * time.Hour).Format(time.RFC3339)},
		{"timestamp": fixedNow.Add(-48 * time.Hour).Format(time.RFC3339)},
		{"timestamp": fixedNow.Add(-72 * time.Hour).Format(time.RFC3339)},
	})
	assert.False(t, stale.Passed)
	require.Len(t, stale.Errors, 1)
	assert.Equal(t, models.ErrorFreshness, stale.Errors[0].ErrorType)
	assert.Equal(t, "timestamp", stale.Errors[0].Field)
}

func TestQualityValidator_FreshnessNaiveTimestampIsUTC(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Freshness: &models.FreshnessRule{MaxLatencyHours: 1, TimestampField: "event_time"},
	})

	result := v.Validate([]map[string]interface{}{
		{"event_time": "2026-10-19T11:30:00"},
	})
	assert.True(t, result.Passed)

	result = v.Validate([]map[string]interface{}{
		{"event_time": "2026-10-19T10:30:00"},
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "event_time", result.Errors[0].Field)
}

func TestQualityValidator_FreshnessUnparsable(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Freshness: &models.FreshnessRule{MaxLatencyHours: 24},
	})

	result := v.Validate([]map[string]interface{}{{"timestamp": "not a time"}})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ErrorFreshness, result.Errors[0].ErrorType)
}

func TestQualityValidator_CompletenessRowCount(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Completeness: &models.CompletenessRule{MinRowCount: intPtr(3)},
	})

	result := v.Validate([]map[string]interface{}{{"a": 1}, {"a": 2}})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ErrorCompleteness, result.Errors[0].ErrorType)
	assert.Empty(t, result.Errors[0].Field)
}

func TestQualityValidator_CompletenessNullPercentage(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Completeness: &models.CompletenessRule{MaxNullPercentage: floatPtr(25)},
	})

	result := v.Validate([]map[string]interface{}{
		{"a": 1, "b": nil, "c": 1},
		{"a": 2, "b": nil, "c": 1},
		{"a": 3, "b": 1},
		{"a": nil, "b": 1},
	})

	require.Len(t, result.Errors, 2)
	assert.Equal(t, "b", result.Errors[0].Field)
	assert.Equal(t, "c", result.Errors[1].Field)
}

func TestQualityValidator_Uniqueness(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Uniqueness: &models.UniquenessRule{Fields: []string{"region", "id"}},
	})

	unique := v.Validate([]map[string]interface{}{
		{"region": "east", "id": 1},
		{"region": "west", "id": 1},
	})
	assert.True(t, unique.Passed)

	dup := v.Validate([]map[string]interface{}{
		{"region": "east", "id": 1},
		{"region": "east", "id": 1},
		{"region": "east", "id": 1},
	})
	require.Len(t, dup.Errors, 1)
	assert.Equal(t, models.ErrorUniqueness, dup.Errors[0].ErrorType)
	assert.Equal(t, "region,id", dup.Errors[0].Field)
}

func TestQualityValidator_Statistics(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Statistics: map[string]map[string]models.StatisticBound{
			"amount": {
				models.AggregateMean: {Min: floatPtr(10), Max: floatPtr(20)},
				models.AggregateMax:  {Max: floatPtr(100)},
			},
			"missing": {
				models.AggregateMin: {Min: floatPtr(0)},
			},
		},
	})

	result := v.Validate([]map[string]interface{}{
		{"amount": 5},
		{"amount": 300},
		{"amount": "n/a"},
	})

	require.Len(t, result.Errors, 2)
	assert.Equal(t, "amount.max", result.Errors[0].Field)
	assert.Equal(t, "amount.mean", result.Errors[1].Field)
	for _, e := range result.Errors {
		assert.Equal(t, models.ErrorStatistics, e.ErrorType)
	}
}

func TestQualityValidator_ScoreReflectsFailedCategories(t *testing.T) {
	v := newQualityValidator(t, models.QualityRuleSet{
		Completeness: &models.CompletenessRule{MinRowCount: intPtr(10)},
		Uniqueness:   &models.UniquenessRule{Fields: []string{"id"}},
	})

	result := v.Validate([]map[string]interface{}{{"id": 1}, {"id": 2}})

	assert.Equal(t, 2, result.RulesEvaluated)
	assert.False(t, result.Passed)
	assert.Less(t, result.QualityScore, 50.0)
}

func TestNewQualityValidator_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules models.QualityRuleSet
	}{
		{"zero latency", models.QualityRuleSet{Freshness: &models.FreshnessRule{MaxLatencyHours: 0}}},
		{"negative rows", models.QualityRuleSet{Completeness: &models.CompletenessRule{MinRowCount: intPtr(-1)}}},
		{"null percentage above 100", models.QualityRuleSet{Completeness: &models.CompletenessRule{MaxNullPercentage: floatPtr(120)}}},
		{"empty uniqueness", models.QualityRuleSet{Uniqueness: &models.UniquenessRule{}}},
		{"unknown aggregate", models.QualityRuleSet{Statistics: map[string]map[string]models.StatisticBound{"a": {"median": {}}}}},
		{"inverted bound", models.QualityRuleSet{Statistics: map[string]map[string]models.StatisticBound{"a": {"mean": {Min: floatPtr(2), Max: floatPtr(1)}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQualityValidator(tt.rules)
			var cfgErr *models.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
