/*
 * @module client/connectors/event
 * @description 批量校验完成事件定义与编码
 * @architecture 客户端层 - 事件通知
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 批量校验完成 -> 构建事件 -> JSON编码 -> Kafka/MQTT
 * @rules 事件只包含汇总信息，不携带逐条结果
 * @dependencies encoding/json
 * @refs client/connectors/kafka_connector.go, client/connectors/mqtt_connector.go
 */

package connectors

import (
	"encoding/json"
	"fmt"
	"time"

	"datacontract-service/service/models"
)

// EventTypeBatchCompleted 批量校验完成事件类型
const EventTypeBatchCompleted = "validation.batch.completed"

// BatchCompletedEvent 批量校验完成事件，只携带汇总信息，不包含记录明细
type BatchCompletedEvent struct {
	EventType     string                   `json:"event_type"`
	BatchID       string                   `json:"batch_id"`
	ContractID    string                   `json:"contract_id"`
	TotalRecords  int                      `json:"total_records"`
	Passed        int                      `json:"passed"`
	Failed        int                      `json:"failed"`
	PassRate      float64                  `json:"pass_rate"`
	QualityScore  float64                  `json:"quality_score"`
	QualityPassed bool                     `json:"quality_passed"`
	ErrorSummary  map[models.ErrorType]int `json:"error_summary"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// NewBatchCompletedEvent 由批量结果构造事件
func NewBatchCompletedEvent(result *models.BatchValidationResult, at time.Time) *BatchCompletedEvent {
	return &BatchCompletedEvent{
		EventType:     EventTypeBatchCompleted,
		BatchID:       result.BatchID,
		ContractID:    result.ContractID,
		TotalRecords:  result.TotalRecords,
		Passed:        result.Passed,
		Failed:        result.Failed,
		PassRate:      result.PassRate,
		QualityScore:  result.QualityScore,
		QualityPassed: result.QualityPassed,
		ErrorSummary:  result.ErrorSummary,
		OccurredAt:    at.UTC(),
	}
}

func encodeEvent(event *BatchCompletedEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return payload, nil
}
