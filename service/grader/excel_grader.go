/*
 * @module service/grader/excel_grader
 * @description 电子表格评分器，连接 Excel/CSV 文件并对活动工作表运行质量指标
 * @architecture 适配器模式 - 将文件型数据源适配为评分器契约
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 文件打开 -> 全部工作表索引 -> 选择活动表 -> 评分 -> 关闭
 * @rules 连接时索引全部工作表；首个工作表默认为活动表；CSV 作为单表工作簿处理
 * @dependencies github.com/xuri/excelize/v2, service/loader, service/models
 * @refs grader.go
 */

package grader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"dataquality-service/service/loader"
	"dataquality-service/service/models"

	"github.com/xuri/excelize/v2"
)

const sourceTypeExcel = "excel"

// ExcelGrader 电子表格数据源评分器
type ExcelGrader struct {
	*BaseGrader
	filePath   string
	sheetOrder []string
	sheets     map[string]*models.Dataset
	activeUnit string
}

// NewExcelGrader 创建电子表格评分器
func NewExcelGrader(name string) *ExcelGrader {
	return &ExcelGrader{
		BaseGrader: NewBaseGrader(name),
		sheets:     make(map[string]*models.Dataset),
	}
}

// Connect 打开文件并索引全部工作表，支持 .xlsx/.xlsm 和 .csv
func (g *ExcelGrader) Connect(ctx context.Context, source string) error {
	g.resetState()
	g.filePath = ""
	g.sheetOrder = nil
	g.sheets = make(map[string]*models.Dataset)
	g.activeUnit = ""

	ext := strings.ToLower(filepath.Ext(source))
	var err error
	switch ext {
	case ".csv":
		err = g.connectCSV(source)
	case ".xlsx", ".xlsm":
		err = g.connectWorkbook(ctx, source)
	default:
		return &models.SourceConnectionError{
			Source: source,
			Err:    fmt.Errorf("不支持的文件类型 '%s'", ext),
		}
	}
	if err != nil {
		return &models.SourceConnectionError{Source: source, Err: err}
	}

	g.filePath = source
	if len(g.sheetOrder) > 0 {
		g.activeUnit = g.sheetOrder[0]
	}
	g.setConnected(true)

	slog.Info("电子表格连接成功", "grader", g.Name(), "path", source,
		"sheets", len(g.sheetOrder))
	return nil
}

func (g *ExcelGrader) connectCSV(source string) error {
	ds, err := loader.LoadCSV(source, loader.CSVOptions{})
	if err != nil {
		return err
	}
	g.sheetOrder = []string{"Sheet1"}
	g.sheets["Sheet1"] = ds
	return nil
}

func (g *ExcelGrader) connectWorkbook(ctx context.Context, source string) error {
	f, err := excelize.OpenFile(source)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("读取工作表 '%s' 失败: %w", sheet, err)
		}

		var ds *models.Dataset
		if len(rows) == 0 {
			ds = models.NewDataset()
		} else {
			ds, err = loader.DatasetFromRows(rows[0], rows[1:])
			if err != nil {
				return fmt.Errorf("工作表 '%s' 构建数据集失败: %w", sheet, err)
			}
		}
		g.sheetOrder = append(g.sheetOrder, sheet)
		g.sheets[sheet] = ds
	}
	return nil
}

// GetAvailableUnits 按工作簿顺序返回工作表名
func (g *ExcelGrader) GetAvailableUnits() ([]string, error) {
	if !g.IsConnected() {
		return nil, models.ErrNotConnected
	}
	units := make([]string, len(g.sheetOrder))
	copy(units, g.sheetOrder)
	return units, nil
}

// SetActiveUnit 选择活动工作表
func (g *ExcelGrader) SetActiveUnit(name string) error {
	if !g.IsConnected() {
		return models.ErrNotConnected
	}
	if _, ok := g.sheets[name]; !ok {
		return fmt.Errorf("工作表 '%s' 不存在", name)
	}
	g.activeUnit = name
	slog.Debug("切换活动工作表", "grader", g.Name(), "sheet", name)
	return nil
}

// ActiveUnit 当前活动工作表名
func (g *ExcelGrader) ActiveUnit() string {
	return g.activeUnit
}

// GetColumnInfo 活动（或指定）工作表的列级元数据
func (g *ExcelGrader) GetColumnInfo(sheetName string) (*models.UnitInfo, error) {
	if !g.IsConnected() {
		return nil, models.ErrNotConnected
	}
	if sheetName == "" {
		sheetName = g.activeUnit
	}
	if sheetName == "" {
		return nil, models.ErrNoActiveUnit
	}
	ds, ok := g.sheets[sheetName]
	if !ok {
		return nil, fmt.Errorf("工作表 '%s' 不存在", sheetName)
	}

	columns := make(map[string]*models.ColumnInfo, ds.ColumnCount())
	for _, col := range ds.Columns() {
		unique := make(map[string]struct{})
		samples := make([]interface{}, 0, 5)
		for _, v := range col.Values {
			if models.IsMissing(v) {
				continue
			}
			key := fmt.Sprintf("%v", v)
			if _, seen := unique[key]; !seen {
				unique[key] = struct{}{}
				if len(samples) < 5 {
					samples = append(samples, v)
				}
			}
		}
		columns[col.Name] = &models.ColumnInfo{
			Kind:         col.Kind,
			NullCount:    col.MissingCount(),
			UniqueCount:  len(unique),
			SampleValues: samples,
		}
	}

	return &models.UnitInfo{
		Name:        sheetName,
		RowCount:    ds.RowCount(),
		ColumnCount: ds.ColumnCount(),
		Columns:     columns,
	}, nil
}

// Grade 对活动工作表运行指标并附加来源元数据
func (g *ExcelGrader) Grade(ctx context.Context, metricNames []string) (*models.GradeResult, error) {
	toRun, err := g.prepareForGrading(metricNames)
	if err != nil {
		return nil, err
	}
	if g.activeUnit == "" {
		return nil, models.ErrNoActiveUnit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := g.sheets[g.activeUnit]
	startTime := time.Now()
	results := g.runMetrics(ds, toRun)
	endTime := time.Now()
	g.storeResults(results)

	return &models.GradeResult{
		Metrics: results,
		Metadata: &models.GradeMetadata{
			SourceType:      sourceTypeExcel,
			Source:          g.filePath,
			ActiveUnit:      g.activeUnit,
			RowCount:        ds.RowCount(),
			ColumnCount:     ds.ColumnCount(),
			Columns:         ds.ColumnNames(),
			StartTime:       startTime,
			EndTime:         endTime,
			DurationSeconds: endTime.Sub(startTime).Seconds(),
		},
	}, nil
}

// Close 释放工作表索引并断开连接
func (g *ExcelGrader) Close() error {
	g.sheets = make(map[string]*models.Dataset)
	g.sheetOrder = nil
	g.activeUnit = ""
	g.setConnected(false)
	slog.Debug("电子表格连接已关闭", "grader", g.Name())
	return nil
}
