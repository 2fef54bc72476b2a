/*
 * @module service/models/jsonb
 * @description JSON列类型，实现 sql.Scanner 与 driver.Valuer
 * @architecture 数据模型层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 写入时序列化为JSON文本 -> 读取时反序列化
 * @rules 空值读写为NULL，兼容PostgreSQL与SQLite的文本列
 * @dependencies database/sql/driver, encoding/json
 * @refs service/models/validation.go, service/models/metrics.go
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONB 通用 JSON 对象类型，postgres 下为 jsonb/text，sqlite 下为 text
type JSONB map[string]interface{}

// scanJSON 将数据库返回的 []byte 或 string 反序列化到 dst
func scanJSON(value interface{}, dst interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}

// Scan 实现 Scanner 接口
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

// Value 实现 Valuer 接口
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
