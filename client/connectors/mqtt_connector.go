/*
 * @module MQTTConnector
 * @description MQTT连接器，批量校验完成后按契约发布汇总事件
 * @architecture 适配器模式 - 封装第三方MQTT客户端，实现校验引擎的批量通知接口
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 连接建立 -> 主题发布 -> 连接断开
 * @rules 主题格式为 <topic>/<contract_id>；支持自动重连和QoS控制
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/validation/engine.go, service/init.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"datacontract-service/service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig MQTT发布配置
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	QoS            byte
	KeepAlive      time.Duration
	PublishTimeout time.Duration
}

// MQTTConnector MQTT连接器结构体
type MQTTConnector struct {
	config *MQTTConfig
	client mqtt.Client
	mutex  sync.Mutex
	now    func() time.Time
}

// NewMQTTConnector 创建新的MQTT连接器，Connect 之后才能发布
func NewMQTTConnector(config *MQTTConfig) (*MQTTConnector, error) {
	if config.Broker == "" {
		return nil, &models.ConfigurationError{Scope: "mqtt", Reason: "未配置broker"}
	}
	if config.Topic == "" {
		return nil, &models.ConfigurationError{Scope: "mqtt", Reason: "未配置topic"}
	}
	if config.QoS > 2 {
		return nil, &models.ConfigurationError{Scope: "mqtt", Reason: fmt.Sprintf("不支持的QoS: %d", config.QoS)}
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = 60 * time.Second
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetCleanSession(true)
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接断开", "broker", config.Broker, "error", err)
	})

	return newMQTTConnector(config, mqtt.NewClient(opts)), nil
}

func newMQTTConnector(config *MQTTConfig, client mqtt.Client) *MQTTConnector {
	return &MQTTConnector{config: config, client: client, now: time.Now}
}

// Connect 建立MQTT连接
func (mc *MQTTConnector) Connect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.client.IsConnected() {
		return nil
	}

	token := mc.client.Connect()
	if !token.WaitTimeout(mc.config.PublishTimeout) {
		return fmt.Errorf("MQTT连接超时: %s", mc.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT连接失败: %w", err)
	}

	slog.Info("MQTT连接器已连接到broker", "broker", mc.config.Broker)
	return nil
}

// Topic 契约对应的发布主题
func (mc *MQTTConnector) Topic(contractID string) string {
	return mc.config.Topic + "/" + contractID
}

// NotifyBatchCompleted 发布批量校验完成事件
func (mc *MQTTConnector) NotifyBatchCompleted(ctx context.Context, result *models.BatchValidationResult) error {
	payload, err := encodeEvent(NewBatchCompletedEvent(result, mc.now()))
	if err != nil {
		return err
	}

	topic := mc.Topic(result.ContractID)
	token := mc.client.Publish(topic, mc.config.QoS, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mc.config.PublishTimeout):
		return fmt.Errorf("发布消息超时 topic=%s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("发布消息失败 topic=%s: %w", topic, err)
	}

	slog.Debug("批量完成事件已发布", "topic", topic, "batch_id", result.BatchID)
	return nil
}

// Close 断开MQTT连接，等待250ms让消息发送完成
func (mc *MQTTConnector) Close() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.client.IsConnected() {
		mc.client.Disconnect(250)
	}
	return nil
}
