/*
 * @module service/models/dataset
 * @description 表格数据集模型，提供列式存储、缺失值统计和重复行检测
 * @architecture 数据模型层 - 不可变值对象
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 数据加载 -> 数据集构建 -> 指标读取（只读）
 * @rules 数据集对所有指标只读，列名唯一，单元格以 nil 表示缺失
 * @dependencies math, strings, fmt
 * @refs service/metrics/, service/loader/
 */

package models

import (
	"fmt"
	"math"
	"strings"
)

// ValueKind 列值类型
type ValueKind string

const (
	KindNumeric  ValueKind = "numeric"
	KindText     ValueKind = "text"
	KindBoolean  ValueKind = "boolean"
	KindTemporal ValueKind = "temporal"
)

// ColumnSpec 列定义，用于数据集构建
type ColumnSpec struct {
	Name string    `json:"name"`
	Kind ValueKind `json:"kind"`
}

// Column 数据集中的一列，Values 按行索引对齐，nil 表示缺失
type Column struct {
	Name   string
	Kind   ValueKind
	Values []interface{}
}

// MissingCount 列内缺失单元格数量
func (c *Column) MissingCount() int {
	count := 0
	for _, v := range c.Values {
		if IsMissing(v) {
			count++
		}
	}
	return count
}

// Dataset 有序命名列的集合，行没有索引以外的标识
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// NewDataset 创建空数据集
func NewDataset() *Dataset {
	return &Dataset{
		columns: make([]*Column, 0),
		index:   make(map[string]int),
	}
}

// AddColumn 追加一列，列名必须唯一且行数与已有列一致
func (d *Dataset) AddColumn(name string, kind ValueKind, values []interface{}) error {
	if name == "" {
		return fmt.Errorf("列名不能为空")
	}
	if _, exists := d.index[name]; exists {
		return fmt.Errorf("列 '%s' 已存在", name)
	}
	if len(d.columns) > 0 && len(values) != d.RowCount() {
		return fmt.Errorf("列 '%s' 行数 %d 与数据集行数 %d 不一致", name, len(values), d.RowCount())
	}
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, &Column{Name: name, Kind: kind, Values: values})
	return nil
}

// Column 按名称查找列
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Columns 按定义顺序返回所有列
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// ColumnNames 按定义顺序返回列名
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// RowCount 行数
func (d *Dataset) RowCount() int {
	if len(d.columns) == 0 {
		return 0
	}
	return len(d.columns[0].Values)
}

// ColumnCount 列数
func (d *Dataset) ColumnCount() int {
	return len(d.columns)
}

// IsEmpty 是否为空数据集（无列或无行）
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.columns) == 0 || d.RowCount() == 0
}

// TotalCells 单元格总数
func (d *Dataset) TotalCells() int {
	return d.RowCount() * d.ColumnCount()
}

// MissingCells 缺失单元格总数
func (d *Dataset) MissingCells() int {
	total := 0
	for _, c := range d.columns {
		total += c.MissingCount()
	}
	return total
}

// Value 返回指定列和行的单元格值，列不存在或行越界时返回 false
func (d *Dataset) Value(column string, row int) (interface{}, bool) {
	c, ok := d.Column(column)
	if !ok || row < 0 || row >= len(c.Values) {
		return nil, false
	}
	return c.Values[row], true
}

// Row 返回某行在各列上的取值快照，用于诊断样例
func (d *Dataset) Row(row int) map[string]interface{} {
	result := make(map[string]interface{}, len(d.columns))
	for _, c := range d.columns {
		if row >= 0 && row < len(c.Values) {
			result[c.Name] = c.Values[row]
		}
	}
	return result
}

// DuplicateRowCount 重复行数量（首次出现之后的行计为重复）
func (d *Dataset) DuplicateRowCount() int {
	if d.IsEmpty() {
		return 0
	}
	seen := make(map[string]struct{}, d.RowCount())
	duplicates := 0
	var sb strings.Builder
	for row := 0; row < d.RowCount(); row++ {
		sb.Reset()
		for _, c := range d.columns {
			fmt.Fprintf(&sb, "%v\x1f", c.Values[row])
		}
		key := sb.String()
		if _, ok := seen[key]; ok {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}
	}
	return duplicates
}

// IsMissing 判断单元格是否缺失，nil 与 NaN 均视为缺失
func IsMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}
