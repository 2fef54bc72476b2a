/*
 * @module service/validation/quality_validator
 * @description 数据集级质量校验器，评估时效性、完整性、唯一性和统计规则并计算质量评分
 * @architecture 分层架构 - 数据质量层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 规则校验 -> 按类别执行 -> 错误汇总 -> 评分计算
 * @rules 规则类别固定；扫描只依赖输入规模，不访问外部资源
 * @dependencies github.com/spf13/cast
 * @refs service/validation/engine.go, service/validation/quality_score.go
 */

package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"datacontract-service/service/models"

	"github.com/spf13/cast"
)

// ruleKind 质量规则类别
type ruleKind int

const (
	ruleFreshness ruleKind = iota
	ruleCompleteness
	ruleUniqueness
	ruleStatistics
)

func (k ruleKind) String() string {
	switch k {
	case ruleFreshness:
		return "freshness"
	case ruleCompleteness:
		return "completeness"
	case ruleUniqueness:
		return "uniqueness"
	case ruleStatistics:
		return "statistics"
	}
	return "unknown"
}

// ruleOrder 规则执行顺序
var ruleOrder = []ruleKind{ruleFreshness, ruleCompleteness, ruleUniqueness, ruleStatistics}

type ruleHandler func(v *QualityValidator, records []map[string]interface{}) []models.ValidationError

var ruleHandlers = map[ruleKind]ruleHandler{
	ruleFreshness:    (*QualityValidator).checkFreshness,
	ruleCompleteness: (*QualityValidator).checkCompleteness,
	ruleUniqueness:   (*QualityValidator).checkUniqueness,
	ruleStatistics:   (*QualityValidator).checkStatistics,
}

// QualityResult 质量校验结果
type QualityResult struct {
	Passed         bool                     `json:"passed"`
	Errors         []models.ValidationError `json:"errors"`
	QualityScore   float64                  `json:"quality_score"`
	RulesEvaluated int                      `json:"rules_evaluated"`
}

// QualityValidator 质量校验器
type QualityValidator struct {
	rules models.QualityRuleSet
	now   func() time.Time
}

// QualityOption 质量校验器选项
type QualityOption func(*QualityValidator)

// WithClock 指定评估时间来源
func WithClock(now func() time.Time) QualityOption {
	return func(v *QualityValidator) {
		v.now = now
	}
}

// NewQualityValidator 校验规则参数并创建质量校验器
func NewQualityValidator(rules models.QualityRuleSet, opts ...QualityOption) (*QualityValidator, error) {
	if err := checkRuleSet(rules); err != nil {
		return nil, err
	}

	v := &QualityValidator{
		rules: rules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func checkRuleSet(rules models.QualityRuleSet) error {
	if f := rules.Freshness; f != nil {
		if f.MaxLatencyHours <= 0 {
			return &models.ConfigurationError{Scope: "quality_rules.freshness", Reason: "max_latency_hours必须大于0"}
		}
	}
	if c := rules.Completeness; c != nil {
		if c.MinRowCount != nil && *c.MinRowCount < 0 {
			return &models.ConfigurationError{Scope: "quality_rules.completeness", Reason: "min_row_count不能为负数"}
		}
		if c.MaxNullPercentage != nil && (*c.MaxNullPercentage < 0 || *c.MaxNullPercentage > 100) {
			return &models.ConfigurationError{Scope: "quality_rules.completeness", Reason: "max_null_percentage必须在0到100之间"}
		}
	}
	if u := rules.Uniqueness; u != nil {
		if len(u.Fields) == 0 {
			return &models.ConfigurationError{Scope: "quality_rules.uniqueness", Reason: "fields不能为空"}
		}
	}
	for field, aggregates := range rules.Statistics {
		for aggregate, bound := range aggregates {
			switch aggregate {
			case models.AggregateMean, models.AggregateMin, models.AggregateMax:
			default:
				return &models.ConfigurationError{Scope: "quality_rules.statistics", Reason: fmt.Sprintf("字段 %s 的聚合 %q 不支持", field, aggregate)}
			}
			if bound.Min != nil && bound.Max != nil && *bound.Min > *bound.Max {
				return &models.ConfigurationError{Scope: "quality_rules.statistics", Reason: fmt.Sprintf("%s.%s 的min大于max", field, aggregate)}
			}
		}
	}
	return nil
}

func (v *QualityValidator) configured(kind ruleKind) bool {
	switch kind {
	case ruleFreshness:
		return v.rules.Freshness != nil
	case ruleCompleteness:
		return v.rules.Completeness != nil
	case ruleUniqueness:
		return v.rules.Uniqueness != nil
	case ruleStatistics:
		return len(v.rules.Statistics) > 0
	}
	return false
}

// Validate 对记录集合执行所有已配置的质量规则
func (v *QualityValidator) Validate(records []map[string]interface{}) *QualityResult {
	result := &QualityResult{Errors: make([]models.ValidationError, 0)}

	failedCategories := 0
	for _, kind := range ruleOrder {
		if !v.configured(kind) {
			continue
		}
		result.RulesEvaluated++

		errs := ruleHandlers[kind](v, records)
		if len(errs) > 0 {
			failedCategories++
			result.Errors = append(result.Errors, errs...)
		}
	}

	result.Passed = len(result.Errors) == 0

	passRate := 100.0
	if result.RulesEvaluated > 0 {
		passRate = PassRate(result.RulesEvaluated-failedCategories, result.RulesEvaluated)
	}
	result.QualityScore = QualityScore(passRate, len(records), failedCategories)

	return result
}

// checkFreshness 时效性检查，任一记录超时即产生一条FRESHNESS错误
func (v *QualityValidator) checkFreshness(records []map[string]interface{}) []models.ValidationError {
	rule := v.rules.Freshness
	field := rule.Field()
	now := v.now().UTC()
	maxLatency := time.Duration(rule.MaxLatencyHours * float64(time.Hour))

	stale, unparsable := 0, 0
	var maxAge time.Duration
	for _, record := range records {
		raw, ok := record[field]
		if !ok || raw == nil {
			continue
		}
		ts, err := parseTimestamp(raw)
		if err != nil {
			unparsable++
			continue
		}
		age := now.Sub(ts)
		if age > maxLatency {
			stale++
			if age > maxAge {
				maxAge = age
			}
		}
	}

	if stale == 0 && unparsable == 0 {
		return nil
	}

	msg := fmt.Sprintf("%d 条记录超过最大延迟 %v 小时", stale, rule.MaxLatencyHours)
	if stale > 0 {
		msg += fmt.Sprintf("，最大延迟 %.2f 小时", maxAge.Hours())
	}
	if unparsable > 0 {
		msg += fmt.Sprintf("，%d 条记录时间戳无法解析", unparsable)
	}
	return []models.ValidationError{{
		Field:     field,
		ErrorType: models.ErrorFreshness,
		Message:   msg,
	}}
}

// parseTimestamp 解析时间戳，无时区信息的时间按UTC处理
func parseTimestamp(raw interface{}) (time.Time, error) {
	if s, ok := raw.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), nil
		}
	}
	t, err := cast.ToTimeInDefaultLocationE(raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// checkCompleteness 完整性检查：最小行数与字段空值比例
func (v *QualityValidator) checkCompleteness(records []map[string]interface{}) []models.ValidationError {
	rule := v.rules.Completeness
	var errs []models.ValidationError

	if rule.MinRowCount != nil && len(records) < *rule.MinRowCount {
		errs = append(errs, models.ValidationError{
			Field:     "",
			ErrorType: models.ErrorCompleteness,
			Message:   fmt.Sprintf("记录数 %d 小于最小行数 %d", len(records), *rule.MinRowCount),
		})
	}

	if rule.MaxNullPercentage == nil || len(records) == 0 {
		return errs
	}

	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			seen[key] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for key := range seen {
		fields = append(fields, key)
	}
	sort.Strings(fields)

	for _, field := range fields {
		nulls := 0
		for _, record := range records {
			if value, ok := record[field]; !ok || value == nil {
				nulls++
			}
		}
		percentage := float64(nulls) / float64(len(records)) * 100
		if percentage > *rule.MaxNullPercentage {
			errs = append(errs, models.ValidationError{
				Field:     field,
				ErrorType: models.ErrorCompleteness,
				Message:   fmt.Sprintf("字段 '%s' 空值比例 %.2f%% 超过上限 %.2f%%", field, percentage, *rule.MaxNullPercentage),
			})
		}
	}

	return errs
}

// checkUniqueness 唯一性检查，存在重复复合键时只报告一次
func (v *QualityValidator) checkUniqueness(records []map[string]interface{}) []models.ValidationError {
	fields := v.rules.Uniqueness.Fields

	seen := make(map[string]struct{}, len(records))
	duplicates := 0
	for _, record := range records {
		key := compositeKey(record, fields)
		if _, exists := seen[key]; exists {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}

	if duplicates == 0 {
		return nil
	}
	return []models.ValidationError{{
		Field:     strings.Join(fields, ","),
		ErrorType: models.ErrorUniqueness,
		Message:   fmt.Sprintf("发现 %d 条重复记录 (键: %s)", duplicates, strings.Join(fields, ", ")),
	}}
}

func compositeKey(record map[string]interface{}, fields []string) string {
	values := make([]interface{}, len(fields))
	for i, field := range fields {
		values[i] = record[field]
	}
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Sprintf("%#v", values)
	}
	return string(b)
}

// checkStatistics 统计规则检查
func (v *QualityValidator) checkStatistics(records []map[string]interface{}) []models.ValidationError {
	fields := make([]string, 0, len(v.rules.Statistics))
	for field := range v.rules.Statistics {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var errs []models.ValidationError
	for _, field := range fields {
		stats, ok := summarize(records, field)
		if !ok {
			continue
		}

		aggregates := v.rules.Statistics[field]
		names := make([]string, 0, len(aggregates))
		for name := range aggregates {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			bound := aggregates[name]
			actual := stats[name]
			if (bound.Min != nil && actual < *bound.Min) || (bound.Max != nil && actual > *bound.Max) {
				errs = append(errs, models.ValidationError{
					Field:     field + "." + name,
					ErrorType: models.ErrorStatistics,
					Message:   fmt.Sprintf("字段 '%s' 的 %s 为 %.4f，超出范围 %s", field, name, actual, describeBound(bound)),
				})
			}
		}
	}
	return errs
}

// summarize 计算字段数值的均值、最小值、最大值，忽略缺失和非数值
func summarize(records []map[string]interface{}, field string) (map[string]float64, bool) {
	count := 0
	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, record := range records {
		value, ok := lookup(record, field)
		if !ok || value == nil {
			continue
		}
		n, ok := toFloat(value)
		if !ok {
			continue
		}
		count++
		sum += n
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
	}
	if count == 0 {
		return nil, false
	}
	return map[string]float64{
		models.AggregateMean: sum / float64(count),
		models.AggregateMin:  lo,
		models.AggregateMax:  hi,
	}, true
}

func describeBound(b models.StatisticBound) string {
	lo, hi := "-inf", "+inf"
	if b.Min != nil {
		lo = fmt.Sprintf("%v", *b.Min)
	}
	if b.Max != nil {
		hi = fmt.Sprintf("%v", *b.Max)
	}
	return "[" + lo + ", " + hi + "]"
}
