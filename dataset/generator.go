// Package dataset 生成离线训练数据集。
// 特征定义与在线链路共用 feature 包，保证 train/serve 一致性：
// velocity 公式、正反馈比率、正样本阈值都取自同一处定义。
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"

	"github.com/rushteam/feedkit/feature"
)

// DefaultRows 是默认生成的样本行数。
const DefaultRows = 1000

// Row 是一行训练样本：二值 label + 完整特征向量。
type Row struct {
	Label    int
	Features feature.Vector
}

// Generator 生成合成训练数据。互动计数服从与真实数据一致的
// 约束（likes ≤ views、h1 ≤ h24 ≤ views 等），派生特征由公式
// 计算而非独立采样。
type Generator struct {
	Rows int
	Rand *rand.Rand
}

func NewGenerator(rows int, seed int64) *Generator {
	if rows <= 0 {
		rows = DefaultRows
	}
	return &Generator{
		Rows: rows,
		Rand: rand.New(rand.NewSource(seed)),
	}
}

// randBetween 返回 [min, max) 内的随机整数（下取整）。
// max <= min 时返回 min，调用方不必预判空区间。
func (g *Generator) randBetween(min, max float64) int {
	if max <= min {
		return int(min)
	}
	return int(g.Rand.Float64()*(max-min) + min)
}

// GenerateRow 生成一行样本。
func (g *Generator) GenerateRow() Row {
	views := g.randBetween(10, 5000)
	likes := g.randBetween(0, float64(views)*0.2)
	comments := g.randBetween(0, float64(likes)*0.3)
	shares := g.randBetween(0, float64(likes)*0.2)

	h1 := g.randBetween(0, float64(views)*0.1)
	h24 := g.randBetween(float64(h1), float64(views))

	label := 0
	if float64(likes) > float64(views)*feature.PositiveEngagementThreshold {
		label = 1
	}

	return Row{
		Label: label,
		Features: feature.Vector{
			Views:                  float64(views),
			Likes:                  float64(likes),
			Comments:               float64(comments),
			Shares:                 float64(shares),
			Velocity:               feature.Velocity(float64(h1), float64(h24)),
			RecencyMinutes:         float64(g.randBetween(0, 1440)),
			AvgWatchCompletion:     g.Rand.Float64(),
			PositiveReactionsRatio: feature.PositiveReactionsRatio(float64(likes), float64(views)),
			UserCategoryMatch:      g.Rand.Float64(),
			UserAuthorAffinity:     g.Rand.Float64(),
			PastBehaviorScore:      g.Rand.Float64(),
			SocialGraph:            float64(g.randBetween(0, 10)),
		},
	}
}

// WriteCSV 生成 Rows 行样本并以 CSV 写出。
// 表头为 label + 特征规范顺序，列序与在线打分的 payload 字段序一致。
func (g *Generator) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, feature.NumFields+1)
	header = append(header, "label")
	header = append(header, feature.FieldNames...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < g.Rows; i++ {
		row := g.GenerateRow()
		record := make([]string, 0, feature.NumFields+1)
		record = append(record, strconv.Itoa(row.Label))
		for _, v := range row.Features.Values() {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile 一次性生成并写入文件（覆盖已有文件）。
func (g *Generator) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := g.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
