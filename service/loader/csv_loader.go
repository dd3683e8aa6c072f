/*
 * @module service/loader/csv_loader
 * @description CSV 文件加载器，支持自定义分隔符和 GBK 编码转换
 * @architecture 分层架构 - 数据接入层
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 文件打开 -> 编码转换 -> CSV 解析 -> 数据集构建
 * @rules 首行为表头，文件缺失或格式非法直接返回错误
 * @dependencies encoding/csv, golang.org/x/text
 * @refs loader.go, service/grader/excel_grader.go
 */

package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"dataquality-service/service/models"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// CSVOptions CSV 加载选项
type CSVOptions struct {
	// Comma 字段分隔符，零值时使用逗号
	Comma rune
	// Encoding 源文件编码，支持 "utf-8"（默认）和 "gbk"
	Encoding string
}

// LoadCSV 加载 CSV 文件为数据集，首行作为表头
func LoadCSV(path string, opts CSVOptions) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 文件失败: %w", err)
	}
	defer f.Close()

	var source io.Reader = f
	switch strings.ToLower(opts.Encoding) {
	case "", "utf-8", "utf8":
	case "gbk":
		source = transform.NewReader(f, simplifiedchinese.GBK.NewDecoder())
	default:
		return nil, fmt.Errorf("不支持的编码 '%s'", opts.Encoding)
	}

	reader := csv.NewReader(source)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 文件失败: %w", err)
	}
	if len(records) == 0 {
		return models.NewDataset(), nil
	}

	return DatasetFromRows(records[0], records[1:])
}
