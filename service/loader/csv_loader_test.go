/*
 * @module service/loader/csv_loader_test
 * @description CSV 加载器单元测试
 * @architecture 单元测试
 */

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"dataquality-service/service/models"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	t.Run("默认逗号分隔", func(t *testing.T) {
		path := writeCSV(t, "data.csv", "name,age\n张三,25\n李四,30\n")

		ds, err := LoadCSV(path, CSVOptions{})
		assert.NoError(t, err)
		assert.Equal(t, 2, ds.RowCount())

		age, _ := ds.Column("age")
		assert.Equal(t, models.KindNumeric, age.Kind)
	})

	t.Run("自定义分隔符", func(t *testing.T) {
		path := writeCSV(t, "data.csv", "name;age\n张三;25\n")

		ds, err := LoadCSV(path, CSVOptions{Comma: ';'})
		assert.NoError(t, err)
		assert.Equal(t, []string{"name", "age"}, ds.ColumnNames())
	})

	t.Run("GBK编码转换", func(t *testing.T) {
		gbk, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte("姓名,年龄\n张三,25\n"))
		assert.NoError(t, err)
		path := filepath.Join(t.TempDir(), "gbk.csv")
		assert.NoError(t, os.WriteFile(path, gbk, 0o644))

		ds, err := LoadCSV(path, CSVOptions{Encoding: "gbk"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"姓名", "年龄"}, ds.ColumnNames())
	})

	t.Run("不支持的编码", func(t *testing.T) {
		path := writeCSV(t, "data.csv", "a\n1\n")
		_, err := LoadCSV(path, CSVOptions{Encoding: "big5"})
		assert.Error(t, err)
	})

	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{})
		assert.Error(t, err)
	})

	t.Run("空文件返回空数据集", func(t *testing.T) {
		path := writeCSV(t, "empty.csv", "")
		ds, err := LoadCSV(path, CSVOptions{})
		assert.NoError(t, err)
		assert.True(t, ds.IsEmpty())
	})
}
