/*
 * @module service/ingestion/errors
 * @description 文件格式错误定义
 * @architecture 数据接入层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 解析失败 -> FormatError(文件类型, 行号)
 * @rules 格式错误意味着整个文件未被校验
 * @dependencies fmt
 * @refs service/ingestion/readers.go, api/controllers/response.go
 */

package ingestion

import "fmt"

// FormatError 文件解析失败，整个文件处理中止且不返回部分结果
type FormatError struct {
	FileType string
	Line     int // 出错的行号，无法定位时为0
	Err      error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("file format error [%s] line %d: %v", e.FileType, e.Line, e.Err)
	}
	return fmt.Sprintf("file format error [%s]: %v", e.FileType, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
