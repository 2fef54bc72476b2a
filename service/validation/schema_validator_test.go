/*
 * @module service/validation/schema_validator_test
 * @description 结构校验器单元测试
 * @architecture 测试层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 构建schema -> 校验记录 -> 断言错误列表
 * @rules 覆盖必填、类型、模式、格式、范围和嵌套路径
 * @dependencies testing, stretchr/testify
 */

package validation

import (
	"encoding/json"
	"testing"

	"datacontract-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func userSchema() models.ContractSchema {
	return models.ContractSchema{
		"user_id": {Type: models.FieldTypeString, Required: true, Pattern: `usr_[0-9]+`},
		"email":   {Type: models.FieldTypeString, Required: true, Format: "email"},
		"age":     {Type: models.FieldTypeInteger, Min: floatPtr(0), Max: floatPtr(150)},
		"score":   {Type: models.FieldTypeNumber},
		"active":  {Type: models.FieldTypeBoolean},
	}
}

func mustSchemaValidator(t *testing.T, schema models.ContractSchema) *SchemaValidator {
	t.Helper()
	v, err := NewSchemaValidator(schema)
	require.NoError(t, err)
	return v
}

func errorTypes(errs []models.ValidationError) []models.ErrorType {
	out := make([]models.ErrorType, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.ErrorType)
	}
	return out
}

func TestSchemaValidator_ValidRecord(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	errs := v.Validate(map[string]interface{}{
		"user_id": "usr_42",
		"email":   "someone@example.com",
		"age":     30,
		"score":   87.5,
		"active":  true,
	})

	assert.Empty(t, errs)
}

func TestSchemaValidator_RequiredFieldMissing(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	errs := v.Validate(map[string]interface{}{"user_id": "usr_1"})

	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, models.ErrorRequiredFieldMissing, errs[0].ErrorType)
}

func TestSchemaValidator_NullTreatedAsMissing(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	errs := v.Validate(map[string]interface{}{
		"user_id": "usr_1",
		"email":   nil,
		"age":     nil,
	})

	require.Len(t, errs, 1)
	assert.Equal(t, models.ErrorRequiredFieldMissing, errs[0].ErrorType)
}

func TestSchemaValidator_NoCoercion(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	tests := []struct {
		name   string
		field  string
		value  interface{}
		expect bool
	}{
		{"string for integer", "age", "30", false},
		{"fraction for integer", "age", 30.5, false},
		{"integral float for integer", "age", float64(30), true},
		{"json number for integer", "age", json.Number("30"), true},
		{"json number with zero fraction for integer", "age", json.Number("30.0"), true},
		{"json number exponent for integer", "age", json.Number("1e2"), true},
		{"json number fraction for integer", "age", json.Number("30.5"), false},
		{"bool for number", "score", true, false},
		{"int for number", "score", 12, true},
		{"string for boolean", "active", "true", false},
		{"int for string", "user_id", 12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := map[string]interface{}{
				"user_id": "usr_1",
				"email":   "a@b.io",
			}
			record[tt.field] = tt.value

			errs := v.Validate(record)
			if tt.expect {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, models.ErrorTypeMismatch, errs[0].ErrorType)
		})
	}
}

func TestSchemaValidator_PatternAndFormat(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	errs := v.Validate(map[string]interface{}{
		"user_id": "user-1",
		"email":   "not-an-email",
	})

	assert.Equal(t, []models.ErrorType{models.ErrorFormatMismatch, models.ErrorPatternMismatch}, errorTypes(errs))
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "user_id", errs[1].Field)
}

func TestSchemaValidator_PatternIsFullMatch(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	errs := v.Validate(map[string]interface{}{
		"user_id": "xusr_1x",
		"email":   "a@b.io",
	})

	assert.Equal(t, []models.ErrorType{models.ErrorPatternMismatch}, errorTypes(errs))
}

func TestSchemaValidator_Range(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())
	base := func(age interface{}) map[string]interface{} {
		return map[string]interface{}{"user_id": "usr_1", "email": "a@b.io", "age": age}
	}

	assert.Equal(t, []models.ErrorType{models.ErrorValueTooSmall}, errorTypes(v.Validate(base(-1))))
	assert.Equal(t, []models.ErrorType{models.ErrorValueTooLarge}, errorTypes(v.Validate(base(151))))
	assert.Empty(t, v.Validate(base(0)))
	assert.Empty(t, v.Validate(base(150)))
}

func TestSchemaValidator_FormatCheckers(t *testing.T) {
	v := mustSchemaValidator(t, models.ContractSchema{
		"id":         {Type: models.FieldTypeString, Format: "uuid"},
		"birthday":   {Type: models.FieldTypeString, Format: "date"},
		"created_at": {Type: models.FieldTypeString, Format: "date-time"},
	})

	assert.Empty(t, v.Validate(map[string]interface{}{
		"id":         "3f1c6c1e-6a55-4a8e-9d1b-3b1a9e7f0c11",
		"birthday":   "1990-02-28",
		"created_at": "2026-10-19T08:00:00Z",
	}))

	errs := v.Validate(map[string]interface{}{
		"id":         "abc",
		"birthday":   "1990-02-30",
		"created_at": "yesterday",
	})
	assert.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, models.ErrorFormatMismatch, e.ErrorType)
	}
}

func TestSchemaValidator_NestedPaths(t *testing.T) {
	v := mustSchemaValidator(t, models.ContractSchema{
		"address": {
			Type:     models.FieldTypeObject,
			Required: true,
			Properties: map[string]*models.FieldDefinition{
				"city": {Type: models.FieldTypeString, Required: true},
				"zip":  {Type: models.FieldTypeString, Pattern: `[0-9]{6}`},
			},
		},
		"tags": {
			Type:  models.FieldTypeArray,
			Items: &models.FieldDefinition{Type: models.FieldTypeString},
		},
	})

	errs := v.Validate(map[string]interface{}{
		"address": map[string]interface{}{"zip": "12"},
		"tags":    []interface{}{"a", 2, "c"},
	})

	require.Len(t, errs, 3)
	assert.Equal(t, "address.city", errs[0].Field)
	assert.Equal(t, models.ErrorRequiredFieldMissing, errs[0].ErrorType)
	assert.Equal(t, "address.zip", errs[1].Field)
	assert.Equal(t, models.ErrorPatternMismatch, errs[1].ErrorType)
	assert.Equal(t, "tags[1]", errs[2].Field)
	assert.Equal(t, models.ErrorTypeMismatch, errs[2].ErrorType)
}

func TestSchemaValidator_MissingObjectDoesNotDescend(t *testing.T) {
	v := mustSchemaValidator(t, models.ContractSchema{
		"address": {
			Type:     models.FieldTypeObject,
			Required: true,
			Properties: map[string]*models.FieldDefinition{
				"city": {Type: models.FieldTypeString, Required: true},
			},
		},
	})

	errs := v.Validate(map[string]interface{}{})

	require.Len(t, errs, 1)
	assert.Equal(t, "address", errs[0].Field)
}

func TestSchemaValidator_DotPathField(t *testing.T) {
	v := mustSchemaValidator(t, models.ContractSchema{
		"meta.source": {Type: models.FieldTypeString, Required: true},
	})

	assert.Empty(t, v.Validate(map[string]interface{}{
		"meta": map[string]interface{}{"source": "crm"},
	}))
	assert.Empty(t, v.Validate(map[string]interface{}{"meta.source": "crm"}))

	errs := v.Validate(map[string]interface{}{"meta": map[string]interface{}{}})
	require.Len(t, errs, 1)
	assert.Equal(t, "meta.source", errs[0].Field)
}

func TestSchemaValidator_ExtraFieldsIgnored(t *testing.T) {
	v := mustSchemaValidator(t, userSchema())

	errs := v.Validate(map[string]interface{}{
		"user_id":  "usr_1",
		"email":    "a@b.io",
		"nickname": "bob",
	})

	assert.Empty(t, errs)
}

func TestNewSchemaValidator_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema models.ContractSchema
	}{
		{"unknown type", models.ContractSchema{"a": {Type: "date"}}},
		{"invalid pattern", models.ContractSchema{"a": {Type: models.FieldTypeString, Pattern: "[a-"}}},
		{"min greater than max", models.ContractSchema{"a": {Type: models.FieldTypeNumber, Min: floatPtr(5), Max: floatPtr(1)}}},
		{"range on string", models.ContractSchema{"a": {Type: models.FieldTypeString, Min: floatPtr(1)}}},
		{"unknown format", models.ContractSchema{"a": {Type: models.FieldTypeString, Format: "ipv9"}}},
		{"properties on string", models.ContractSchema{"a": {Type: models.FieldTypeString, Properties: map[string]*models.FieldDefinition{}}}},
		{"nil definition", models.ContractSchema{"a": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchemaValidator(tt.schema)
			require.Error(t, err)
			var cfgErr *models.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
