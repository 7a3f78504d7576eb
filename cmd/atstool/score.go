package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ats-match-go/internal/ats"
	"ats-match-go/internal/extractor"
)

// 定义评分命令的命令行参数
var (
	scoreInputFile = flag.String("score-file", "", "要评分的简历文件路径")
	scoreKeywords  = flag.String("keywords", "", "职位关键词，逗号分隔 (必填)")
	scoreNoFuzzy   = flag.Bool("no-fuzzy", false, "禁用模糊匹配层")
	scoreThreshold = flag.Int("fuzzy-threshold", 80, "模糊匹配判定阈值 (0-100]")
)

// 处理关键词评分命令
func handleScoreCommand() {
	inputFile := *scoreInputFile
	if inputFile == "" {
		inputFile = *resumeFilePath
	}

	if inputFile == "" {
		fmt.Println("错误: 必须提供简历文件路径。使用 -score-file 或 -file 参数。")
		flag.Usage()
		os.Exit(1)
	}
	if *scoreKeywords == "" {
		fmt.Println("错误: 必须提供职位关键词。使用 -keywords 参数，逗号分隔。")
		flag.Usage()
		os.Exit(1)
	}

	keywords := make([]string, 0)
	for _, kw := range strings.Split(*scoreKeywords, ",") {
		if trimmed := strings.TrimSpace(kw); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	if len(keywords) == 0 {
		fmt.Println("错误: 关键词列表为空。")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, reason := extractFromPath(ctx, inputFile)
	if reason != extractor.FailureNone {
		fmt.Printf("提取文本失败: %s\n", reason)
		os.Exit(1)
	}

	matcherOpts := []ats.MatcherOption{
		ats.WithFuzzyThreshold(*scoreThreshold),
	}
	if !*scoreNoFuzzy {
		matcherOpts = append(matcherOpts, ats.WithFuzzyScorer(ats.NewFuzzyWuzzyScorer()))
	}
	matcher := ats.NewMatcher(matcherOpts...)

	startTime := time.Now()
	result := matcher.ScoreKeywords(keywords, text)
	fmt.Printf("评分完成! 耗时: %v\n", time.Since(startTime))

	fmt.Printf("\n===== 评分结果 =====\n")
	fmt.Printf("得分: %.1f (关键词 %d 个, 命中 %d 个)\n", result.Score, len(keywords), len(result.Matched))
	fmt.Printf("命中: %s\n", strings.Join(result.Matched, ", "))
	fmt.Printf("缺失: %s\n", strings.Join(result.Missing, ", "))
}
