/*
 * @module service/ingestion/readers
 * @description 流式记录读取器，按文件类型把源文件解析为记录
 * @architecture 分层架构 - 数据接入层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 字节流 -> 编码转换 -> 逐条解析 -> 记录
 * @rules 读取器逐条返回记录，内存占用与文件大小无关；结构性错误返回 FormatError
 * @dependencies encoding/csv, encoding/json, github.com/spf13/cast
 * @refs service/ingestion/batch_processor.go
 */

package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"datacontract-service/service/models"

	"github.com/spf13/cast"
)

// 支持的文件类型
const (
	FileTypeCSV    = "csv"
	FileTypeTSV    = "tsv"
	FileTypeJSON   = "json"
	FileTypeJSONL  = "jsonl"
	FileTypeNDJSON = "ndjson"
)

// maxLineSize JSON Lines 单行最大字节数
const maxLineSize = 16 * 1024 * 1024

// singleColumnHeader 单列CSV的表头必须是普通标识符
var singleColumnHeader = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// recordReader 逐条读取记录，读完返回 io.EOF
type recordReader interface {
	Next() (interface{}, error)
}

// normalizeFileType 校验并规范化文件类型
func normalizeFileType(fileType string) (string, error) {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	switch ft {
	case FileTypeCSV, FileTypeTSV, FileTypeJSON, FileTypeJSONL, FileTypeNDJSON:
		return ft, nil
	}
	return "", &models.ConfigurationError{Scope: "ingestion", Reason: fmt.Sprintf("不支持的文件类型: %q", fileType)}
}

func newRecordReader(r io.Reader, fileType string) (recordReader, error) {
	switch fileType {
	case FileTypeCSV:
		return newDelimitedReader(r, fileType, ',')
	case FileTypeTSV:
		return newDelimitedReader(r, fileType, '\t')
	case FileTypeJSON:
		return newJSONArrayReader(r)
	case FileTypeJSONL, FileTypeNDJSON:
		return newJSONLinesReader(r, fileType), nil
	}
	return nil, &models.ConfigurationError{Scope: "ingestion", Reason: fmt.Sprintf("不支持的文件类型: %q", fileType)}
}

// ===================== CSV / TSV =====================

// delimitedReader 表格文件读取器，表头行映射为字段名
type delimitedReader struct {
	fileType string
	reader   *csv.Reader
	header   []string
}

func newDelimitedReader(r io.Reader, fileType string, comma rune) (*delimitedReader, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	// TSV 不使用引号转义，单元格中的引号按原样保留
	cr.LazyQuotes = comma == '\t'

	d := &delimitedReader{fileType: fileType, reader: cr}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{FileType: fileType, Line: 1, Err: errors.New("文件为空，缺少表头")}
		}
		return nil, d.wrap(err)
	}
	if err := d.checkHeader(header); err != nil {
		return nil, err
	}
	d.header = append([]string(nil), header...)
	return d, nil
}

func (d *delimitedReader) checkHeader(header []string) error {
	if len(header) == 1 && !singleColumnHeader.MatchString(header[0]) {
		return &FormatError{FileType: d.fileType, Line: 1, Err: errors.New("内容不是分隔符格式的表格数据")}
	}

	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if err := checkCell(name); err != nil {
			return &FormatError{FileType: d.fileType, Line: 1, Err: err}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return &FormatError{FileType: d.fileType, Line: 1, Err: fmt.Errorf("第 %d 列表头为空", i+1)}
		}
		if _, dup := seen[name]; dup {
			return &FormatError{FileType: d.fileType, Line: 1, Err: fmt.Errorf("表头重复: %q", name)}
		}
		seen[name] = struct{}{}
		header[i] = name
	}
	return nil
}

func (d *delimitedReader) Next() (interface{}, error) {
	row, err := d.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, d.wrap(err)
	}

	line, _ := d.reader.FieldPos(0)
	record := make(map[string]interface{}, len(d.header))
	for i, cell := range row {
		if err := checkCell(cell); err != nil {
			return nil, &FormatError{FileType: d.fileType, Line: line, Err: fmt.Errorf("第 %d 列: %w", i+1, err)}
		}
		record[d.header[i]] = inferCell(cell)
	}
	return record, nil
}

func (d *delimitedReader) wrap(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &FormatError{FileType: d.fileType, Line: parseErr.Line, Err: parseErr.Err}
	}
	return &FormatError{FileType: d.fileType, Err: err}
}

func checkCell(cell string) error {
	if strings.IndexByte(cell, 0) >= 0 {
		return errors.New("包含NUL字节")
	}
	if !utf8.ValidString(cell) {
		return errors.New("包含无效的UTF-8编码")
	}
	return nil
}

// inferCell 推断单元格类型：空串为null，整数、浮点数、布尔值，其余保持字符串
// 以0开头的多位编码（如邮编、工号）保持字符串
func inferCell(cell string) interface{} {
	if cell == "" {
		return nil
	}
	if strings.EqualFold(cell, "true") {
		return true
	}
	if strings.EqualFold(cell, "false") {
		return false
	}
	if hasLeadingZero(cell) {
		return cell
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if strings.ContainsAny(cell, "0123456789") {
		if f, err := cast.ToFloat64E(cell); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	return cell
}

func hasLeadingZero(cell string) bool {
	digits := strings.TrimPrefix(cell, "-")
	return len(digits) > 1 && digits[0] == '0' && digits[1] != '.'
}

// ===================== JSON 数组 =====================

// jsonArrayReader 读取顶层为对象数组的JSON文件
type jsonArrayReader struct {
	decoder *json.Decoder
	done    bool
}

func newJSONArrayReader(r io.Reader) (*jsonArrayReader, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{FileType: FileTypeJSON, Err: errors.New("文件为空")}
		}
		return nil, &FormatError{FileType: FileTypeJSON, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &FormatError{FileType: FileTypeJSON, Err: errors.New("顶层必须是记录数组")}
	}
	return &jsonArrayReader{decoder: dec}, nil
}

func (j *jsonArrayReader) Next() (interface{}, error) {
	if j.done {
		return nil, io.EOF
	}

	if j.decoder.More() {
		var value interface{}
		if err := j.decoder.Decode(&value); err != nil {
			return nil, &FormatError{FileType: FileTypeJSON, Err: fmt.Errorf("偏移 %d: %w", j.decoder.InputOffset(), err)}
		}
		return value, nil
	}

	if _, err := j.decoder.Token(); err != nil {
		return nil, &FormatError{FileType: FileTypeJSON, Err: fmt.Errorf("数组未正确结束: %w", err)}
	}
	if _, err := j.decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, &FormatError{FileType: FileTypeJSON, Err: errors.New("数组之后存在多余内容")}
	}
	j.done = true
	return nil, io.EOF
}

// ===================== JSON Lines =====================

// jsonLinesReader 逐行读取JSON对象，单行格式错误作为独立的错误记录返回
type jsonLinesReader struct {
	fileType string
	scanner  *bufio.Scanner
	line     int
}

func newJSONLinesReader(r io.Reader, fileType string) *jsonLinesReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &jsonLinesReader{fileType: fileType, scanner: scanner}
}

func (j *jsonLinesReader) Next() (interface{}, error) {
	for j.scanner.Scan() {
		j.line++
		raw := bytes.TrimSpace(j.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var value interface{}
		err := dec.Decode(&value)
		if err == nil && dec.More() {
			err = errors.New("一行包含多个JSON值")
		}
		if err != nil {
			return models.MalformedRecord{Position: j.line, Raw: string(raw), Err: err}, nil
		}
		return value, nil
	}

	if err := j.scanner.Err(); err != nil {
		return nil, &FormatError{FileType: j.fileType, Line: j.line + 1, Err: err}
	}
	return nil, io.EOF
}
