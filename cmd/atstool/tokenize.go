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

// 定义分词命令的命令行参数
var (
	tokenizeInputFile = flag.String("tokenize-file", "", "要分词的简历文件路径")
	tokenizeUnique    = flag.Bool("tokenize-unique", false, "只显示去重后的词表")
)

// 处理分词命令
func handleTokenizeCommand() {
	inputFile := *tokenizeInputFile
	if inputFile == "" {
		inputFile = *resumeFilePath
	}

	if inputFile == "" {
		fmt.Println("错误: 必须提供简历文件路径。使用 -tokenize-file 或 -file 参数。")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, reason := extractFromPath(ctx, inputFile)
	if reason != extractor.FailureNone {
		fmt.Printf("提取文本失败: %s\n", reason)
		os.Exit(1)
	}

	tokens := ats.Tokenize(text)
	fmt.Printf("\n===== 分词结果 (%d 个词元) =====\n", len(tokens))

	if *tokenizeUnique {
		seen := make(map[string]struct{}, len(tokens))
		unique := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; !ok {
				seen[token] = struct{}{}
				unique = append(unique, token)
			}
		}
		fmt.Printf("去重后 %d 个词元:\n%s\n", len(unique), strings.Join(unique, " "))
		return
	}

	fmt.Println(strings.Join(tokens, " "))
}
