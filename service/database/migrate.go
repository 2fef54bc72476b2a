/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构，并从目录导入契约定义
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 应用启动时执行数据库迁移 -> 导入契约
 * @rules 确保数据库结构与模型定义保持一致；导入的契约必须能通过解析
 * @dependencies datacontract-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"datacontract-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	slog.Info("开始数据库迁移...")

	// 契约表由契约管理模块维护，这里只保证表存在
	if err := db.AutoMigrate(&models.DataContract{}); err != nil {
		return err
	}

	// 校验结果与指标
	err := db.AutoMigrate(
		&models.ValidationResultRecord{},
		&models.DailyMetrics{},
	)
	if err != nil {
		return err
	}

	slog.Info("数据库迁移完成")
	return nil
}

// InitializeData 从目录导入契约YAML文件，目录为空时跳过
// 文件名（去掉扩展名）作为契约名称，已存在的契约会被更新
func InitializeData(db *gorm.DB, contractsDir string) error {
	if contractsDir == "" {
		return nil
	}
	slog.Info("开始导入契约定义...", "dir", contractsDir)

	entries, err := os.ReadDir(contractsDir)
	if err != nil {
		return fmt.Errorf("读取契约目录失败: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	repo := NewContractRepository(db)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(contractsDir, name))
		if err != nil {
			return fmt.Errorf("读取契约文件 %s 失败: %w", name, err)
		}
		contractName := strings.TrimSuffix(name, filepath.Ext(name))
		if _, err := repo.SaveContract(context.Background(), contractName, content); err != nil {
			return fmt.Errorf("导入契约 %s 失败: %w", name, err)
		}
	}

	slog.Info("契约定义导入完成", "count", len(files))
	return nil
}
