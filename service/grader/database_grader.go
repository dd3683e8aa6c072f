/*
 * @module service/grader/database_grader
 * @description 关系型数据库评分器，基于 gorm 连接 PostgreSQL/SQLite 并对活动表运行质量指标
 * @architecture 适配器模式 - 将关系型数据源适配为评分器契约
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 连接建立 -> 表枚举 -> 选择活动表 -> 行物化 -> 评分 -> 关闭
 * @rules
 *   - 连接串按前缀选择方言，日志输出前必须脱敏
 *   - 连接在 Close 时显式释放，自省失败也不泄漏连接
 *   - 表数据在每次 grade 调用时物化一次
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite, service/loader
 * @refs grader.go
 */

package grader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dataquality-service/service/loader"
	"dataquality-service/service/models"
	"dataquality-service/service/utils"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sourceTypeDatabase = "database"

// DatabaseGrader 关系型数据源评分器
type DatabaseGrader struct {
	*BaseGrader
	db          *gorm.DB
	maskedDSN   string
	dbType      string
	activeTable string
}

// NewDatabaseGrader 创建数据库评分器
func NewDatabaseGrader(name string) *DatabaseGrader {
	return &DatabaseGrader{BaseGrader: NewBaseGrader(name)}
}

// dialectorFor 按连接串前缀选择 gorm 方言
func dialectorFor(source string) (gorm.Dialector, string, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "postgres://"),
		strings.HasPrefix(lower, "postgresql://"),
		strings.Contains(lower, "host="):
		return postgres.Open(source), "postgresql", nil
	case strings.HasSuffix(lower, ".db"),
		strings.HasSuffix(lower, ".sqlite"),
		strings.HasPrefix(lower, "file:"),
		lower == ":memory:":
		return sqlite.Open(source), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("无法识别连接串对应的数据库类型")
	}
}

// Connect 建立数据库连接并验证连通性
func (g *DatabaseGrader) Connect(ctx context.Context, source string) error {
	if g.db != nil {
		g.Close()
	}
	g.resetState()
	g.activeTable = ""
	g.maskedDSN = utils.MaskDSN(source)

	dialector, dbType, err := dialectorFor(source)
	if err != nil {
		return &models.SourceConnectionError{Source: g.maskedDSN, Err: err}
	}

	slog.Info("连接数据库", "grader", g.Name(), "dsn", g.maskedDSN, "db_type", dbType)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return &models.SourceConnectionError{Source: g.maskedDSN, Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return &models.SourceConnectionError{Source: g.maskedDSN, Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return &models.SourceConnectionError{Source: g.maskedDSN, Err: err}
	}

	g.db = db
	g.dbType = dbType
	g.setConnected(true)
	slog.Info("数据库连接成功", "grader", g.Name(), "db_type", dbType)
	return nil
}

// GetAvailableUnits 枚举数据库中的表
func (g *DatabaseGrader) GetAvailableUnits() ([]string, error) {
	if !g.IsConnected() {
		return nil, models.ErrNotConnected
	}
	tables, err := g.db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("枚举数据表失败: %w", err)
	}
	return tables, nil
}

// SetActiveUnit 选择活动表，表必须实际存在
func (g *DatabaseGrader) SetActiveUnit(name string) error {
	if !g.IsConnected() {
		return models.ErrNotConnected
	}
	tables, err := g.GetAvailableUnits()
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == name {
			g.activeTable = name
			slog.Debug("切换活动表", "grader", g.Name(), "table", name)
			return nil
		}
	}
	return fmt.Errorf("数据表 '%s' 不存在", name)
}

// ActiveUnit 当前活动表名
func (g *DatabaseGrader) ActiveUnit() string {
	return g.activeTable
}

// columnSpecs 读取表的列元数据并映射为数据集列定义
func (g *DatabaseGrader) columnSpecs(table string) ([]models.ColumnSpec, []string, error) {
	columnTypes, err := g.db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, nil, fmt.Errorf("读取表 '%s' 列信息失败: %w", table, err)
	}

	specs := make([]models.ColumnSpec, 0, len(columnTypes))
	var primaryKeys []string
	for _, ct := range columnTypes {
		specs = append(specs, models.ColumnSpec{
			Name: ct.Name(),
			Kind: kindForDatabaseType(ct.DatabaseTypeName()),
		})
		if pk, ok := ct.PrimaryKey(); ok && pk {
			primaryKeys = append(primaryKeys, ct.Name())
		}
	}
	return specs, primaryKeys, nil
}

// kindForDatabaseType 数据库类型名到列值类型的映射
func kindForDatabaseType(dbType string) models.ValueKind {
	switch strings.ToUpper(dbType) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "INT2", "INT4", "INT8",
		"REAL", "FLOAT", "DOUBLE", "NUMERIC", "DECIMAL", "FLOAT4", "FLOAT8":
		return models.KindNumeric
	case "BOOL", "BOOLEAN":
		return models.KindBoolean
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIME":
		return models.KindTemporal
	default:
		return models.KindText
	}
}

// materialize 将活动表数据物化为数据集
func (g *DatabaseGrader) materialize(ctx context.Context, table string) (*models.Dataset, error) {
	specs, _, err := g.columnSpecs(table)
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := g.db.WithContext(ctx).Table(table).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("读取表 '%s' 数据失败: %w", table, err)
	}

	return loader.DatasetFromRecords(specs, records)
}

// GetTableInfo 活动（或指定）表的行数、列与主键元数据
func (g *DatabaseGrader) GetTableInfo(table string) (*models.UnitInfo, error) {
	if !g.IsConnected() {
		return nil, models.ErrNotConnected
	}
	if table == "" {
		table = g.activeTable
	}
	if table == "" {
		return nil, models.ErrNoActiveUnit
	}

	specs, primaryKeys, err := g.columnSpecs(table)
	if err != nil {
		return nil, err
	}

	var rowCount int64
	if err := g.db.Table(table).Count(&rowCount).Error; err != nil {
		return nil, fmt.Errorf("统计表 '%s' 行数失败: %w", table, err)
	}

	columns := make(map[string]*models.ColumnInfo, len(specs))
	for _, spec := range specs {
		columns[spec.Name] = &models.ColumnInfo{Kind: spec.Kind}
	}

	return &models.UnitInfo{
		Name:        table,
		RowCount:    int(rowCount),
		ColumnCount: len(specs),
		Columns:     columns,
		PrimaryKeys: primaryKeys,
	}, nil
}

// Grade 物化活动表数据、运行指标并附加来源元数据
func (g *DatabaseGrader) Grade(ctx context.Context, metricNames []string) (*models.GradeResult, error) {
	toRun, err := g.prepareForGrading(metricNames)
	if err != nil {
		return nil, err
	}
	if g.activeTable == "" {
		return nil, models.ErrNoActiveUnit
	}

	ds, err := g.materialize(ctx, g.activeTable)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	results := g.runMetrics(ds, toRun)
	endTime := time.Now()
	g.storeResults(results)

	return &models.GradeResult{
		Metrics: results,
		Metadata: &models.GradeMetadata{
			SourceType:      sourceTypeDatabase,
			Source:          g.maskedDSN,
			ActiveUnit:      g.activeTable,
			RowCount:        ds.RowCount(),
			ColumnCount:     ds.ColumnCount(),
			Columns:         ds.ColumnNames(),
			StartTime:       startTime,
			EndTime:         endTime,
			DurationSeconds: endTime.Sub(startTime).Seconds(),
			Extra: map[string]interface{}{
				"db_type": g.dbType,
			},
		},
	}, nil
}

// Close 释放数据库连接，所有退出路径都必须经过这里
func (g *DatabaseGrader) Close() error {
	g.setConnected(false)
	g.activeTable = ""
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	g.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("关闭数据库连接失败: %w", err)
	}
	slog.Debug("数据库连接已关闭", "grader", g.Name())
	return nil
}
