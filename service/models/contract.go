/*
 * @module service/models/contract
 * @description 数据契约定义模型，包含字段schema、字段定义和数据集级质量规则
 * @architecture 数据模型层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 契约YAML -> 解析 -> 只读契约定义 -> 校验引擎
 * @rules 契约定义在一次校验调用内只读，引擎不修改、不缓存
 * @dependencies gopkg.in/yaml.v3
 * @refs service/validation, service/database/contract_repository.go
 */

package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldType 字段类型
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
	FieldTypeArray   FieldType = "array"
)

// IsKnown 是否为支持的字段类型
func (t FieldType) IsKnown() bool {
	switch t {
	case FieldTypeString, FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean, FieldTypeObject, FieldTypeArray:
		return true
	}
	return false
}

// IsNumeric 是否为数值类型
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeInteger || t == FieldTypeNumber
}

// FieldKind 字段定义的变体种类
type FieldKind int

const (
	FieldKindPrimitive FieldKind = iota
	FieldKindObject
	FieldKindArray
)

// FieldDefinition 字段定义
// Properties 仅在 object 类型下出现，Items 仅在 array 类型下出现
type FieldDefinition struct {
	Type       FieldType                   `yaml:"type" json:"type"`
	Required   bool                        `yaml:"required,omitempty" json:"required,omitempty"`
	Pattern    string                      `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Format     string                      `yaml:"format,omitempty" json:"format,omitempty"`
	Min        *float64                    `yaml:"min,omitempty" json:"min,omitempty"`
	Max        *float64                    `yaml:"max,omitempty" json:"max,omitempty"`
	Properties map[string]*FieldDefinition `yaml:"properties,omitempty" json:"properties,omitempty"`
	Items      *FieldDefinition            `yaml:"items,omitempty" json:"items,omitempty"`
}

// Kind 返回字段定义的变体种类
func (f *FieldDefinition) Kind() FieldKind {
	switch f.Type {
	case FieldTypeObject:
		return FieldKindObject
	case FieldTypeArray:
		return FieldKindArray
	default:
		return FieldKindPrimitive
	}
}

// ContractSchema 字段名（支持点路径）到字段定义的映射
type ContractSchema map[string]*FieldDefinition

// FreshnessRule 时效性规则
type FreshnessRule struct {
	MaxLatencyHours float64 `yaml:"max_latency_hours" json:"max_latency_hours"`
	TimestampField  string  `yaml:"timestamp_field,omitempty" json:"timestamp_field,omitempty"`
}

// DefaultTimestampField 未指定时间戳字段时使用的保留字段名
const DefaultTimestampField = "timestamp"

// Field 返回时间戳字段名
func (r *FreshnessRule) Field() string {
	if r.TimestampField == "" {
		return DefaultTimestampField
	}
	return r.TimestampField
}

// CompletenessRule 完整性规则
type CompletenessRule struct {
	MinRowCount       *int     `yaml:"min_row_count,omitempty" json:"min_row_count,omitempty"`
	MaxNullPercentage *float64 `yaml:"max_null_percentage,omitempty" json:"max_null_percentage,omitempty"`
}

// UniquenessRule 唯一性规则，Fields 按顺序组成复合键
type UniquenessRule struct {
	Fields []string `yaml:"fields" json:"fields"`
}

// StatisticBound 统计量的上下界
type StatisticBound struct {
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// 支持的统计聚合
const (
	AggregateMean = "mean"
	AggregateMin  = "min"
	AggregateMax  = "max"
)

// QualityRuleSet 数据集级质量规则集合
// 规则类别固定为 freshness、completeness、uniqueness、statistics
type QualityRuleSet struct {
	Freshness    *FreshnessRule                       `yaml:"freshness,omitempty" json:"freshness,omitempty"`
	Completeness *CompletenessRule                    `yaml:"completeness,omitempty" json:"completeness,omitempty"`
	Uniqueness   *UniquenessRule                      `yaml:"uniqueness,omitempty" json:"uniqueness,omitempty"`
	Statistics   map[string]map[string]StatisticBound `yaml:"statistics,omitempty" json:"statistics,omitempty"`
}

// IsEmpty 是否未配置任何规则
func (q QualityRuleSet) IsEmpty() bool {
	return q.Freshness == nil && q.Completeness == nil && q.Uniqueness == nil && len(q.Statistics) == 0
}

// RecordScoped 返回可以在单条记录上评估的规则子集（时效性与空值比例）
func (q QualityRuleSet) RecordScoped() QualityRuleSet {
	scoped := QualityRuleSet{Freshness: q.Freshness}
	if q.Completeness != nil && q.Completeness.MaxNullPercentage != nil {
		scoped.Completeness = &CompletenessRule{MaxNullPercentage: q.Completeness.MaxNullPercentage}
	}
	return scoped
}

// ContractDefinition 解析后的契约定义
type ContractDefinition struct {
	ID              string         `yaml:"-" json:"id"`
	Name            string         `yaml:"-" json:"name"`
	Version         string         `yaml:"-" json:"version"`
	ContractVersion string         `yaml:"contract_version" json:"contract_version"`
	Domain          string         `yaml:"domain" json:"domain"`
	Description     string         `yaml:"description,omitempty" json:"description,omitempty"`
	Schema          ContractSchema `yaml:"schema" json:"schema"`
	QualityRules    QualityRuleSet `yaml:"quality_rules,omitempty" json:"quality_rules,omitempty"`
}

// ParseContractDefinition 解析契约YAML文档
func ParseContractDefinition(content []byte) (*ContractDefinition, error) {
	var def ContractDefinition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, &ConfigurationError{Scope: "contract", Reason: fmt.Sprintf("YAML解析失败: %v", err)}
	}
	if len(def.Schema) == 0 {
		return nil, &ConfigurationError{Scope: "contract", Reason: "schema不能为空"}
	}
	return &def, nil
}
