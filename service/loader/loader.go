/*
 * @module service/loader/loader
 * @description 数据加载器，将原始行数据构建为数据集并推断列值类型
 * @architecture 分层架构 - 数据接入层
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 原始行读取 -> 类型推断 -> 单元格强转 -> 数据集构建
 * @rules 类型推断只到决定检查适用性的程度，空字符串统一转为缺失
 * @dependencies service/models, service/utils
 * @refs csv_loader.go, service/grader/
 */

package loader

import (
	"fmt"

	"dataquality-service/service/models"
	"dataquality-service/service/utils"
)

// DatasetFromRows 从表头和字符串行构建数据集，列类型按值推断
func DatasetFromRows(header []string, rows [][]string) (*models.Dataset, error) {
	if len(header) == 0 {
		return models.NewDataset(), nil
	}

	ds := models.NewDataset()
	for colIdx, name := range header {
		raw := make([]string, 0, len(rows))
		for _, row := range rows {
			cell := ""
			if colIdx < len(row) {
				cell = row[colIdx]
			}
			raw = append(raw, cell)
		}

		kind := InferKind(raw)
		values := make([]interface{}, len(raw))
		for i, cell := range raw {
			values[i] = coerceCell(cell, kind)
		}
		if err := ds.AddColumn(name, kind, values); err != nil {
			return nil, fmt.Errorf("构建数据集失败: %w", err)
		}
	}
	return ds, nil
}

// DatasetFromRecords 从列定义和记录映射构建数据集，列顺序由 specs 决定
func DatasetFromRecords(specs []models.ColumnSpec, records []map[string]interface{}) (*models.Dataset, error) {
	ds := models.NewDataset()
	for _, spec := range specs {
		values := make([]interface{}, len(records))
		for i, record := range records {
			v, ok := record[spec.Name]
			if !ok || utils.IsEmptyValue(v) {
				values[i] = nil
				continue
			}
			values[i] = v
		}
		if err := ds.AddColumn(spec.Name, spec.Kind, values); err != nil {
			return nil, fmt.Errorf("构建数据集失败: %w", err)
		}
	}
	return ds, nil
}

// InferKind 根据非空样本推断列值类型，全部可解析才归入对应类型
func InferKind(values []string) models.ValueKind {
	nonEmpty := 0
	numeric := 0
	boolean := 0
	temporal := 0

	for _, v := range values {
		if utils.IsEmptyValue(v) {
			continue
		}
		nonEmpty++
		if _, err := utils.ToBool(v); err == nil {
			boolean++
		}
		if _, err := utils.ToFloat64(v); err == nil {
			numeric++
			continue
		}
		if _, err := utils.ToTime(v); err == nil {
			temporal++
		}
	}

	if nonEmpty == 0 {
		return models.KindText
	}
	// 布尔优先于数值：0/1 也能解析为数值
	if boolean == nonEmpty {
		return models.KindBoolean
	}
	if numeric == nonEmpty {
		return models.KindNumeric
	}
	if temporal == nonEmpty {
		return models.KindTemporal
	}
	return models.KindText
}

// coerceCell 按列类型强转单元格，失败时保留原始字符串
func coerceCell(cell string, kind models.ValueKind) interface{} {
	if utils.IsEmptyValue(cell) {
		return nil
	}
	switch kind {
	case models.KindNumeric:
		if f, err := utils.ToFloat64(cell); err == nil {
			return f
		}
	case models.KindBoolean:
		if b, err := utils.ToBool(cell); err == nil {
			return b
		}
	case models.KindTemporal:
		if t, err := utils.ToTime(cell); err == nil {
			return t
		}
	}
	return cell
}
