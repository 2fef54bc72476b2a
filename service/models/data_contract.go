/*
 * @module service/models/data_contract
 * @description 数据契约持久化模型
 * @architecture 数据模型层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 契约导入/维护 -> 校验引擎只读
 * @rules 名称唯一；只有active状态的契约参与校验
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/database/contract_repository.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DataContract 数据契约记录，由契约管理模块维护，校验引擎只读
type DataContract struct {
	ID          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Domain      string    `gorm:"type:varchar(100);index" json:"domain"`
	Version     string    `gorm:"type:varchar(20);not null;default:'1.0.0'" json:"version"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // active, deprecated, archived
	Description string    `gorm:"type:text" json:"description"`
	YAMLContent string    `gorm:"type:text;not null" json:"yaml_content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DataContract) TableName() string {
	return "data_contracts"
}

// BeforeCreate 创建前钩子
func (c *DataContract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// ContractStatusActive 可用于校验的契约状态
const ContractStatusActive = "active"
