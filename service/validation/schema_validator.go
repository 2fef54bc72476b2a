/*
 * @module service/validation/schema_validator
 * @description 结构校验器，按契约字段schema递归校验单条记录
 * @architecture 分层架构 - 数据校验层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow schema编译 -> 深度优先遍历 -> 错误收集
 * @rules 不抛出异常，所有问题以错误列表返回；schema错误在构造时一次性报告
 * @dependencies regexp, github.com/google/uuid
 * @refs service/validation/engine.go, service/models/contract.go
 */

package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"datacontract-service/service/models"

	"github.com/google/uuid"
)

// maxSchemaDepth schema允许的最大嵌套深度
const maxSchemaDepth = 32

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// formatCheckers 语义格式校验规则
var formatCheckers = map[string]func(string) bool{
	"email": func(s string) bool {
		return emailRegex.MatchString(s)
	},
	"uuid": func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	"date": func(s string) bool {
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	},
	"date-time": func(s string) bool {
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	},
}

// compiledField 编译后的字段节点
type compiledField struct {
	name       string
	def        *models.FieldDefinition
	pattern    *regexp.Regexp
	format     func(string) bool
	properties []*compiledField
	items      *compiledField
}

// SchemaValidator 结构校验器
type SchemaValidator struct {
	fields []*compiledField
}

// NewSchemaValidator 编译schema并创建结构校验器
func NewSchemaValidator(schema models.ContractSchema) (*SchemaValidator, error) {
	fields, err := compileFields(schema, "", 1)
	if err != nil {
		return nil, err
	}
	return &SchemaValidator{fields: fields}, nil
}

func compileFields(schema map[string]*models.FieldDefinition, prefix string, depth int) ([]*compiledField, error) {
	if depth > maxSchemaDepth {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 嵌套深度超过 %d", prefix, maxSchemaDepth)}
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]*compiledField, 0, len(names))
	for _, name := range names {
		field, err := compileField(name, joinPath(prefix, name), schema[name], depth)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func compileField(name, path string, def *models.FieldDefinition, depth int) (*compiledField, error) {
	if def == nil {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 缺少定义", path)}
	}
	if !def.Type.IsKnown() {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 类型不支持: %q", path, def.Type)}
	}
	if def.Properties != nil && def.Type != models.FieldTypeObject {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 只有object类型可以定义properties", path)}
	}
	if def.Items != nil && def.Type != models.FieldTypeArray {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 只有array类型可以定义items", path)}
	}
	if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 的min大于max", path)}
	}
	if (def.Min != nil || def.Max != nil) && !def.Type.IsNumeric() {
		return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 非数值类型不能定义min/max", path)}
	}

	field := &compiledField{name: name, def: def}

	if def.Pattern != "" {
		if def.Type != models.FieldTypeString {
			return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 非字符串类型不能定义pattern", path)}
		}
		re, err := regexp.Compile(`^(?:` + def.Pattern + `)$`)
		if err != nil {
			return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 的pattern无效: %v", path, err)}
		}
		field.pattern = re
	}

	if def.Format != "" {
		checker, ok := formatCheckers[def.Format]
		if !ok {
			return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 的format不支持: %q", path, def.Format)}
		}
		if def.Type != models.FieldTypeString {
			return nil, &models.ConfigurationError{Scope: "schema", Reason: fmt.Sprintf("字段 %s 非字符串类型不能定义format", path)}
		}
		field.format = checker
	}

	switch def.Kind() {
	case models.FieldKindObject:
		props, err := compileFields(def.Properties, path, depth+1)
		if err != nil {
			return nil, err
		}
		field.properties = props
	case models.FieldKindArray:
		if def.Items != nil {
			items, err := compileField("", path+"[]", def.Items, depth+1)
			if err != nil {
				return nil, err
			}
			field.items = items
		}
	}

	return field, nil
}

// Validate 校验单条记录，返回的错误按schema字段的字典序排列
func (v *SchemaValidator) Validate(record map[string]interface{}) []models.ValidationError {
	errs := make([]models.ValidationError, 0)
	for _, field := range v.fields {
		value, present := lookup(record, field.name)
		errs = validateValue(field, field.name, value, present, errs)
	}
	return errs
}

func validateValue(field *compiledField, path string, value interface{}, present bool, errs []models.ValidationError) []models.ValidationError {
	def := field.def

	if !present || value == nil {
		if def.Required {
			errs = append(errs, models.ValidationError{
				Field:     path,
				ErrorType: models.ErrorRequiredFieldMissing,
				Message:   fmt.Sprintf("必填字段 '%s' 缺失", path),
			})
		}
		return errs
	}

	if !matchesType(def.Type, value) {
		return append(errs, models.ValidationError{
			Field:     path,
			ErrorType: models.ErrorTypeMismatch,
			Message:   fmt.Sprintf("字段 '%s' 期望类型 %s, 实际为 %s", path, def.Type, describeType(value)),
		})
	}

	switch def.Type {
	case models.FieldTypeString:
		s := value.(string)
		if field.pattern != nil && !field.pattern.MatchString(s) {
			return append(errs, models.ValidationError{
				Field:     path,
				ErrorType: models.ErrorPatternMismatch,
				Message:   fmt.Sprintf("字段 '%s' 的值不匹配模式 %s", path, def.Pattern),
			})
		}
		if field.format != nil && !field.format(s) {
			return append(errs, models.ValidationError{
				Field:     path,
				ErrorType: models.ErrorFormatMismatch,
				Message:   fmt.Sprintf("字段 '%s' 不是有效的 %s 格式", path, def.Format),
			})
		}

	case models.FieldTypeInteger, models.FieldTypeNumber:
		n, _ := toFloat(value)
		if def.Min != nil && n < *def.Min {
			return append(errs, models.ValidationError{
				Field:     path,
				ErrorType: models.ErrorValueTooSmall,
				Message:   fmt.Sprintf("字段 '%s' 的值 %v 小于最小值 %v", path, n, *def.Min),
			})
		}
		if def.Max != nil && n > *def.Max {
			return append(errs, models.ValidationError{
				Field:     path,
				ErrorType: models.ErrorValueTooLarge,
				Message:   fmt.Sprintf("字段 '%s' 的值 %v 大于最大值 %v", path, n, *def.Max),
			})
		}

	case models.FieldTypeObject:
		obj := value.(map[string]interface{})
		for _, child := range field.properties {
			childValue, childPresent := lookup(obj, child.name)
			errs = validateValue(child, joinPath(path, child.name), childValue, childPresent, errs)
		}

	case models.FieldTypeArray:
		if field.items == nil {
			return errs
		}
		elements := toSlice(value)
		for i, element := range elements {
			errs = validateValue(field.items, fmt.Sprintf("%s[%d]", path, i), element, true, errs)
		}
	}

	return errs
}

// lookup 按字段名取值，字段名不存在时按点路径逐级查找
func lookup(record map[string]interface{}, name string) (interface{}, bool) {
	if record == nil {
		return nil, false
	}
	if value, ok := record[name]; ok {
		return value, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}

	var current interface{} = record
	for _, part := range strings.Split(name, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// matchesType 不做类型转换的类型比较
func matchesType(t models.FieldType, value interface{}) bool {
	switch t {
	case models.FieldTypeString:
		_, ok := value.(string)
		return ok
	case models.FieldTypeBoolean:
		_, ok := value.(bool)
		return ok
	case models.FieldTypeInteger:
		return isInteger(value)
	case models.FieldTypeNumber:
		_, ok := toFloat(value)
		return ok
	case models.FieldTypeObject:
		_, ok := value.(map[string]interface{})
		return ok
	case models.FieldTypeArray:
		if _, ok := value.([]interface{}); ok {
			return true
		}
		return reflect.ValueOf(value).Kind() == reflect.Slice
	}
	return false
}

func isInteger(value interface{}) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return !math.IsInf(v, 0) && !math.IsNaN(v) && v == math.Trunc(v)
	case float32:
		f := float64(v)
		return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
	case json.Number:
		if _, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return true
		}
		// 与float64解码路径保持一致："100.0"、"1e2" 视为整数
		f, err := v.Float64()
		return err == nil && !math.IsInf(f, 0) && f == math.Trunc(f)
	}
	return false
}

// toFloat 提取数值，布尔值与字符串不视为数值
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func toSlice(value interface{}) []interface{} {
	if s, ok := value.([]interface{}); ok {
		return s
	}
	rv := reflect.ValueOf(value)
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func describeType(value interface{}) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	if isInteger(value) {
		return "integer"
	}
	if _, ok := toFloat(value); ok {
		return "number"
	}
	return fmt.Sprintf("%T", value)
}
