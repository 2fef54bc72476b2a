/*
 * @module service/validation/quality_score
 * @description 质量评分计算
 * @architecture 业务逻辑层 - 评分
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 通过率/样本量/错误类别 -> 0-100评分
 * @rules 评分随错误类别增加而降低，随通过率提高而提高
 * @dependencies math
 * @refs service/validation/quality_validator.go, service/metrics/aggregator.go
 */

package validation

import "math"

const (
	// varietyPenalty 每种错误类别的基础扣分
	varietyPenalty = 2.0
)

// QualityScore 计算0-100的质量评分
// 评分 = 通过率 - 错误类别数 * 2 / (1 + log10(1 + 样本量))，结果限制在[0, 100]
// 错误类别越多评分越低，通过率越高评分越高，样本量越大扣分越少
func QualityScore(passRate float64, totalValidations int, errorVariety int) float64 {
	if math.IsNaN(passRate) {
		passRate = 0
	}
	passRate = clamp(passRate, 0, 100)
	if totalValidations < 0 {
		totalValidations = 0
	}
	if errorVariety < 0 {
		errorVariety = 0
	}

	dampening := 1 + math.Log10(1+float64(totalValidations))
	penalty := float64(errorVariety) * varietyPenalty / dampening

	return clamp(passRate-penalty, 0, 100)
}

// PassRate 计算百分比通过率，total为0时返回0
func PassRate(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}

// Round2 保留两位小数用于展示
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
