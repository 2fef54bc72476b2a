/*
 * @module service/ingestion/batch_processor_test
 * @description 文件批量处理器单元测试
 * @architecture 测试层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 生成临时文件 -> 处理文件 -> 断言汇总结果
 * @rules 格式错误时校验器不应被调用
 * @dependencies testing, stretchr/testify, golang.org/x/text
 */

package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"datacontract-service/service/models"
	"datacontract-service/service/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// recordingValidator 记录每个分块，按记录是否为对象判定通过
type recordingValidator struct {
	mu     sync.Mutex
	chunks [][]interface{}
}

func (v *recordingValidator) CheckContract(ctx context.Context, contractID string) error {
	return nil
}

func (v *recordingValidator) ValidateBatch(ctx context.Context, contractID string, records []interface{}) (*models.BatchValidationResult, error) {
	v.mu.Lock()
	v.chunks = append(v.chunks, records)
	v.mu.Unlock()

	result := &models.BatchValidationResult{
		BatchID:       "chunk",
		ContractID:    contractID,
		TotalRecords:  len(records),
		QualityPassed: true,
		QualityScore:  100,
		ErrorSummary:  map[models.ErrorType]int{},
	}
	for i, r := range records {
		rec := models.RecordResult{Index: i, Status: models.StatusPass}
		if _, ok := r.(map[string]interface{}); ok {
			result.Passed++
		} else {
			rec.Status = models.StatusFail
			rec.Errors = []models.ValidationError{{ErrorType: models.ErrorInvalidRecord}}
			result.Failed++
			result.ErrorSummary[models.ErrorInvalidRecord]++
		}
		result.Results = append(result.Results, rec)
	}
	return result, nil
}

func (v *recordingValidator) records() []interface{} {
	var all []interface{}
	for _, c := range v.chunks {
		all = append(all, c...)
	}
	return all
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestProcessFile_CSV(t *testing.T) {
	validator := &recordingValidator{}
	processor := NewBatchProcessor(validator)
	path := writeFile(t, "users.csv", []byte("user_id,email,age,zip,active,score\nusr_1,a@b.io,30,01234,true,9.5\nusr_2,,41,10001,false,\n"))

	result, err := processor.ProcessFile(context.Background(), "users", path, "csv")

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 100.0, result.PassRate)
	assert.Empty(t, result.Results)

	records := validator.records()
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, "usr_1", first["user_id"])
	assert.Equal(t, int64(30), first["age"])
	assert.Equal(t, "01234", first["zip"])
	assert.Equal(t, true, first["active"])
	assert.Equal(t, 9.5, first["score"])

	second := records[1].(map[string]interface{})
	assert.Nil(t, second["email"])
	assert.Nil(t, second["score"])
	assert.Equal(t, int64(10001), second["zip"])
}

func TestProcessFile_NotCSV(t *testing.T) {
	validator := &recordingValidator{}
	processor := NewBatchProcessor(validator)
	path := writeFile(t, "bad.csv", []byte("not csv format\njust some free text here\n"))

	result, err := processor.ProcessFile(context.Background(), "users", path, "csv")

	assert.Nil(t, result)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, FileTypeCSV, formatErr.FileType)
	assert.Empty(t, validator.chunks)
}

func TestProcessFile_RaggedRowDiscardsEverything(t *testing.T) {
	validator := &recordingValidator{}
	processor := NewBatchProcessor(validator, WithChunkSize(2))

	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < 10; i++ {
		b.WriteString("1,a\n")
	}
	b.WriteString("1,a,extra\n")
	path := writeFile(t, "ragged.csv", []byte(b.String()))

	result, err := processor.ProcessFile(context.Background(), "users", path, "csv")

	assert.Nil(t, result)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 12, formatErr.Line)
	assert.Empty(t, validator.chunks)
}

func TestProcessFile_HeaderProblems(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"duplicate header", "id,id\n1,2\n"},
		{"empty header", "id,\n1,2\n"},
		{"nul byte", "id,name\n1,a\x00b\n"},
		{"invalid utf-8", "id,name\n1,\xff\xfe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "data.csv", []byte(tt.content))
			_, err := NewBatchProcessor(&recordingValidator{}).ProcessFile(context.Background(), "c", path, "csv")
			var formatErr *FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestProcessFile_TSVLiteralQuotes(t *testing.T) {
	validator := &recordingValidator{}
	path := writeFile(t, "products.tsv", []byte("sku\tdesc\nA1\t55\" screen\nA2\tsays \"hi\"\n"))

	result, err := NewBatchProcessor(validator).ProcessFile(context.Background(), "c", path, "tsv")

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRecords)
	records := validator.records()
	require.Len(t, records, 2)
	assert.Equal(t, `55" screen`, records[0].(map[string]interface{})["desc"])
	assert.Equal(t, `says "hi"`, records[1].(map[string]interface{})["desc"])
}

func TestProcessFile_SingleColumnCSV(t *testing.T) {
	validator := &recordingValidator{}
	path := writeFile(t, "ids.csv", []byte("user_id\nusr_1\nusr_2\nusr_3\n"))

	result, err := NewBatchProcessor(validator).ProcessFile(context.Background(), "users", path, "csv")

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRecords)
}

func TestProcessFile_UnsupportedTypeBeforeIO(t *testing.T) {
	validator := &recordingValidator{}

	_, err := NewBatchProcessor(validator).ProcessFile(context.Background(), "users", "/does/not/exist.xlsx", "xlsx")

	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, validator.chunks)
}

func TestProcessFile_UnsupportedEncoding(t *testing.T) {
	_, err := NewBatchProcessor(&recordingValidator{}).ProcessFileWithEncoding(context.Background(), "users", "/does/not/exist.csv", "csv", "latin9")

	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestProcessFile_Chunking(t *testing.T) {
	validator := &recordingValidator{}
	processor := NewBatchProcessor(validator, WithChunkSize(3))

	var b strings.Builder
	b.WriteString("id\tvalue\n")
	for i := 0; i < 7; i++ {
		b.WriteString("1\tx\n")
	}
	path := writeFile(t, "data.tsv", []byte(b.String()))

	result, err := processor.ProcessFile(context.Background(), "c", path, "TSV")

	require.NoError(t, err)
	assert.Equal(t, 7, result.TotalRecords)
	require.Len(t, validator.chunks, 3)
	assert.Len(t, validator.chunks[0], 3)
	assert.Len(t, validator.chunks[1], 3)
	assert.Len(t, validator.chunks[2], 1)
}

func TestProcessFile_JSONArray(t *testing.T) {
	validator := &recordingValidator{}
	path := writeFile(t, "data.json", []byte(`[{"id": 1, "amount": 12.5}, {"id": 2}, 7]`))

	result, err := NewBatchProcessor(validator, WithChunkSize(2)).ProcessFile(context.Background(), "c", path, "json")

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 2, result.Results[0].Index)
	assert.Equal(t, 1, result.ErrorSummary[models.ErrorInvalidRecord])
}

func TestProcessFile_JSONNotArray(t *testing.T) {
	validator := &recordingValidator{}
	path := writeFile(t, "data.json", []byte(`{"id": 1}`))

	_, err := NewBatchProcessor(validator).ProcessFile(context.Background(), "c", path, "json")

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Empty(t, validator.chunks)
}

func TestProcessFile_JSONLinesMalformedLineIsolated(t *testing.T) {
	validator := &recordingValidator{}
	path := writeFile(t, "data.jsonl", []byte("{\"id\": 1}\n\n{\"id\": \n{\"id\": 3}\n"))

	result, err := NewBatchProcessor(validator).ProcessFile(context.Background(), "c", path, "jsonl")

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)

	malformed, ok := validator.records()[1].(models.MalformedRecord)
	require.True(t, ok)
	assert.Equal(t, 3, malformed.Position)
}

func TestProcessFile_GBKEncoding(t *testing.T) {
	validator := &recordingValidator{}
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("城市,人口\n北京,2189\n")
	require.NoError(t, err)
	path := writeFile(t, "cities.csv", []byte(encoded))

	result, err := NewBatchProcessor(validator).ProcessFileWithEncoding(context.Background(), "c", path, "csv", "gbk")

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRecords)
	record := validator.records()[0].(map[string]interface{})
	assert.Equal(t, "北京", record["城市"])
	assert.Equal(t, int64(2189), record["人口"])
}

func TestProcessFile_UTF8BOM(t *testing.T) {
	validator := &recordingValidator{}
	path := writeFile(t, "bom.csv", []byte("\xef\xbb\xbfid,name\n1,a\n"))

	_, err := NewBatchProcessor(validator).ProcessFile(context.Background(), "c", path, "csv")

	require.NoError(t, err)
	record := validator.records()[0].(map[string]interface{})
	assert.Contains(t, record, "id")
}

func TestProcessFile_WithValidationEngine(t *testing.T) {
	contract := &models.ContractDefinition{
		ID: "users",
		Schema: models.ContractSchema{
			"user_id": {Type: models.FieldTypeString, Required: true},
			"age":     {Type: models.FieldTypeInteger},
		},
	}
	engine := validation.NewValidationEngine(contractSource{"users": contract}, discardStore{})
	path := writeFile(t, "users.csv", []byte("user_id,age\nusr_1,30\n,31\nusr_3,abc\n"))

	result, err := NewBatchProcessor(engine).ProcessFile(context.Background(), "users", path, "csv")

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 33.33, result.PassRate)
	assert.Equal(t, 1, result.ErrorSummary[models.ErrorRequiredFieldMissing])
	assert.Equal(t, 1, result.ErrorSummary[models.ErrorTypeMismatch])
}

func TestProcessFile_UnknownContract(t *testing.T) {
	engine := validation.NewValidationEngine(contractSource{}, discardStore{})
	path := writeFile(t, "users.csv", []byte("user_id\nusr_1\n"))

	result, err := NewBatchProcessor(engine).ProcessFile(context.Background(), "missing", path, "csv")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrContractNotFound)
}

func TestProcessFile_UnknownContractBeforeParsing(t *testing.T) {
	engine := validation.NewValidationEngine(contractSource{}, discardStore{})
	malformed := writeFile(t, "broken.csv", []byte("user_id,email\nusr_1\n"))
	absent := filepath.Join(t.TempDir(), "absent.csv")

	for _, path := range []string{malformed, absent} {
		result, err := NewBatchProcessor(engine).ProcessFile(context.Background(), "missing", path, "csv")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, models.ErrContractNotFound, path)
		var formatErr *FormatError
		assert.False(t, errors.As(err, &formatErr))
	}
}

type contractSource map[string]*models.ContractDefinition

func (s contractSource) GetContract(ctx context.Context, contractID string) (*models.ContractDefinition, error) {
	if c, ok := s[contractID]; ok {
		return c, nil
	}
	return nil, models.ErrContractNotFound
}

type discardStore struct{}

func (discardStore) SaveValidationResult(ctx context.Context, record *models.ValidationResultRecord) error {
	return nil
}
