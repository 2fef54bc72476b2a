/*
 * @module service/database/contract_repository
 * @description 契约仓储，按ID或名称解析可用契约，支持契约目录导入
 * @architecture 数据访问层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 按ID/名称查询 -> 解析YAML -> 返回契约定义
 * @rules 只解析状态为active的契约；保存前必须能通过YAML解析
 * @dependencies gorm.io/gorm
 * @refs service/validation/engine.go, service/database/migrate.go
 */

package database

import (
	"context"
	"errors"
	"fmt"

	"datacontract-service/service/models"

	"gorm.io/gorm"
)

// ContractRepository 契约仓储，为校验引擎提供只读的契约解析
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository 创建契约仓储实例
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// GetContract 按ID或名称获取可用契约并解析YAML定义
func (r *ContractRepository) GetContract(ctx context.Context, contractID string) (*models.ContractDefinition, error) {
	var contract models.DataContract
	err := r.db.WithContext(ctx).
		Where("(id = ? OR name = ?) AND status = ?", contractID, contractID, models.ContractStatusActive).
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrContractNotFound
		}
		return nil, fmt.Errorf("查询契约失败: %w", err)
	}

	def, err := models.ParseContractDefinition([]byte(contract.YAMLContent))
	if err != nil {
		return nil, err
	}
	def.ID = contract.ID
	def.Name = contract.Name
	def.Version = contract.Version
	if def.Domain == "" {
		def.Domain = contract.Domain
	}
	return def, nil
}

// SaveContract 按名称创建或更新契约，保存前校验YAML可解析
func (r *ContractRepository) SaveContract(ctx context.Context, name string, content []byte) (*models.DataContract, error) {
	def, err := models.ParseContractDefinition(content)
	if err != nil {
		return nil, err
	}

	var contract models.DataContract
	err = r.db.WithContext(ctx).Where("name = ?", name).First(&contract).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		contract = models.DataContract{
			Name:        name,
			Domain:      def.Domain,
			Version:     "1.0.0",
			Status:      models.ContractStatusActive,
			Description: def.Description,
			YAMLContent: string(content),
		}
		if def.ContractVersion != "" {
			contract.Version = def.ContractVersion
		}
		if err := r.db.WithContext(ctx).Create(&contract).Error; err != nil {
			return nil, fmt.Errorf("创建契约失败: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("查询契约失败: %w", err)
	default:
		updates := map[string]interface{}{
			"domain":       def.Domain,
			"description":  def.Description,
			"yaml_content": string(content),
		}
		if def.ContractVersion != "" {
			updates["version"] = def.ContractVersion
		}
		if err := r.db.WithContext(ctx).Model(&contract).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("更新契约失败: %w", err)
		}
	}
	return &contract, nil
}

// ListActiveContractIDs 列出所有可用契约的ID
func (r *ContractRepository) ListActiveContractIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.DataContract{}).
		Where("status = ?", models.ContractStatusActive).
		Order("name").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询契约列表失败: %w", err)
	}
	return ids, nil
}
