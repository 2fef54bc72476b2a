/*
 * @module service/models/errors
 * @description 校验服务的错误类型定义
 * @architecture 数据模型层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 组件返回错误 -> 控制器按类型映射HTTP状态码
 * @rules 未找到类错误使用哨兵值，配置和持久化错误携带上下文
 * @dependencies errors, fmt
 * @refs api/controllers/response.go
 */

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrContractNotFound 契约不存在
	ErrContractNotFound = errors.New("contract not found")
	// ErrResultNotFound 校验结果不存在
	ErrResultNotFound = errors.New("validation result not found")
)

// ConfigurationError 配置错误（schema、规则定义或文件类型不合法），在初始化阶段抛出
type ConfigurationError struct {
	Scope  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Scope, e.Reason)
}

// PersistenceError 结果持久化失败，与校验失败区分
type PersistenceError struct {
	ContractID string
	Failed     []int // 持久化失败的记录下标
	Err        error
}

func (e *PersistenceError) Error() string {
	if len(e.Failed) > 0 {
		return fmt.Sprintf("persist validation results for contract %s: %d record(s) failed: %v", e.ContractID, len(e.Failed), e.Err)
	}
	return fmt.Sprintf("persist validation result for contract %s: %v", e.ContractID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MalformedRecord 无法解析为对象的单条输入记录（例如某一行JSON格式错误）
// 校验引擎将其记为带合成错误的FAIL结果，而不是中断整个批次
type MalformedRecord struct {
	Position int
	Raw      string
	Err      error
}
