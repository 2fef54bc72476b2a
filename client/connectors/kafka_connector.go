/*
 * @module KafkaConnector
 * @description Kafka连接器，批量校验完成后向指定topic发布汇总事件
 * @architecture 适配器模式 - 封装第三方Kafka客户端，实现校验引擎的批量通知接口
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 创建生产者 -> 发送事件 -> 关闭生产者
 * @rules 以契约ID作为消息key，保证同一契约的事件有序；发送失败只返回错误，不影响校验结果
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/validation/engine.go, service/init.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datacontract-service/service/models"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig Kafka发布配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// messageWriter kafka.Writer 的发送子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector Kafka连接器结构体
type KafkaConnector struct {
	config *KafkaConfig
	writer messageWriter
	now    func() time.Time
}

// NewKafkaConnector 创建新的Kafka连接器
func NewKafkaConnector(config *KafkaConfig) (*KafkaConnector, error) {
	if len(config.Brokers) == 0 {
		return nil, &models.ConfigurationError{Scope: "kafka", Reason: "未配置brokers"}
	}
	if config.Topic == "" {
		return nil, &models.ConfigurationError{Scope: "kafka", Reason: "未配置topic"}
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}

	slog.Info("Kafka连接器已创建", "brokers", config.Brokers, "topic", config.Topic)
	return newKafkaConnector(config, writer), nil
}

func newKafkaConnector(config *KafkaConfig, writer messageWriter) *KafkaConnector {
	return &KafkaConnector{config: config, writer: writer, now: time.Now}
}

// NotifyBatchCompleted 发布批量校验完成事件
func (kc *KafkaConnector) NotifyBatchCompleted(ctx context.Context, result *models.BatchValidationResult) error {
	payload, err := encodeEvent(NewBatchCompletedEvent(result, kc.now()))
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(result.ContractID),
		Value: payload,
		Time:  kc.now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeBatchCompleted)},
			{Key: "batch_id", Value: []byte(result.BatchID)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, kc.config.WriteTimeout)
	defer cancel()

	if err := kc.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送消息失败 topic=%s: %w", kc.config.Topic, err)
	}

	slog.Debug("批量完成事件已发送", "topic", kc.config.Topic, "batch_id", result.BatchID)
	return nil
}

// Close 关闭生产者
func (kc *KafkaConnector) Close() error {
	if err := kc.writer.Close(); err != nil {
		return fmt.Errorf("关闭生产者失败: %w", err)
	}
	return nil
}
