// 生成合成训练数据集（CSV），供离线训练打分模型使用。
//
// 用法：
//
//	go run ./cmd/trainingdata -rows 1000 -o training_data.csv
package main

import (
	"flag"
	"log"
	"time"

	"github.com/rushteam/feedkit/dataset"
)

func main() {
	rows := flag.Int("rows", dataset.DefaultRows, "生成的样本行数")
	output := flag.String("o", "training_data.csv", "输出文件路径")
	seed := flag.Int64("seed", 0, "随机种子（0 表示使用当前时间）")
	flag.Parse()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}

	g := dataset.NewGenerator(*rows, s)
	if err := g.WriteFile(*output); err != nil {
		log.Fatalf("generate training data: %v", err)
	}
	log.Printf("synthetic %s generated with %d rows", *output, g.Rows)
}
