/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"math"

	"dataquality-service/service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Missing 数据集中的数值型缺失值占位
var Missing = math.NaN()

// BuildDataset 按列名和列值构建数据集，未指定类型的列默认为文本列
func BuildDataset(columns map[string][]interface{}, order []string, kinds map[string]models.ValueKind) *models.Dataset {
	ds := models.NewDataset()
	for _, name := range order {
		kind, ok := kinds[name]
		if !ok {
			kind = models.KindText
		}
		if err := ds.AddColumn(name, kind, columns[name]); err != nil {
			panic(fmt.Sprintf("failed to build test dataset: %v", err))
		}
	}
	return ds
}

// OpenSQLite 打开测试用 sqlite 数据库，path 为 ":memory:" 或临时文件路径
func OpenSQLite(path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	return db
}
