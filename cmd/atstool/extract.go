package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ats-match-go/internal/extractor"
)

// 定义提取命令的命令行参数
var (
	extractInputFile = flag.String("extract-file", "", "要提取的简历文件路径")
	extractSaveFile  = flag.String("extract-save", "", "保存提取内容到文件")
)

// 处理提取文本命令
func handleExtractCommand() {
	inputFile := *extractInputFile
	if inputFile == "" {
		inputFile = *resumeFilePath
	}

	if inputFile == "" {
		fmt.Println("错误: 必须提供简历文件路径。使用 -extract-file 或 -file 参数。")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("准备处理简历文件: %s\n", inputFile)

	text, reason := extractFromPath(ctx, inputFile)
	if reason != extractor.FailureNone {
		fmt.Printf("提取文本失败: %s\n", reason)
		os.Exit(1)
	}

	// 显示提取结果
	fmt.Printf("\n===== 提取的文本 (总计 %d 字符) =====\n", len(text))

	displayText := text
	if *maxLen >= 0 && len(text) > *maxLen {
		displayText = text[:*maxLen] + "...(已截断，使用 -maxlen 参数显示更多)"
	}
	fmt.Println(displayText)

	// 保存到文件
	if *extractSaveFile != "" {
		if err := os.WriteFile(*extractSaveFile, []byte(text), 0644); err != nil {
			fmt.Printf("保存文件失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("已保存提取内容到: %s\n", *extractSaveFile)
	}
}

// extractFromPath 打开本地文件并走与服务端一致的提取链路
func extractFromPath(ctx context.Context, path string) (string, extractor.FailureReason) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		fmt.Printf("无法获取文件的绝对路径: %v\n", err)
		os.Exit(1)
	}

	file, err := os.Open(absPath)
	if err != nil {
		fmt.Printf("无法访问文件 %s: %v\n", absPath, err)
		os.Exit(1)
	}
	defer file.Close()

	pdfStrategy, err := extractor.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		fmt.Printf("创建PDF提取器失败: %v\n", err)
		os.Exit(1)
	}

	uploadExtractor := extractor.NewUploadExtractor(
		extractor.WithPDFStrategy(pdfStrategy),
		extractor.WithDOCXStrategy(extractor.NewDocxTextExtractor()),
	)

	startTime := time.Now()
	result := uploadExtractor.ExtractUpload(ctx, file, filepath.Base(absPath))
	if result.OK() {
		fmt.Printf("提取完成! 耗时: %v\n", time.Since(startTime))
	}
	return result.Text, result.Reason
}
