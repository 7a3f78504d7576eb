package extractor

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DocxTextExtractor 基于 nguyenthenguyen/docx 的 DOCX 文本提取策略。
// 库只暴露原始 document.xml，段落切分由本提取器在 XML 层完成：
// 每个 <w:p> 内的 <w:t> 文本拼成一段，非空段落按文档顺序换行连接。
type DocxTextExtractor struct {
	logger *log.Logger
}

// DocxOption DOCX 提取器的配置选项
type DocxOption func(*DocxTextExtractor)

// WithDocxLogger 配置自定义日志记录器
func WithDocxLogger(logger *log.Logger) DocxOption {
	return func(e *DocxTextExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// 确保 DocxTextExtractor 实现了 TextExtractor 接口
var _ TextExtractor = (*DocxTextExtractor)(nil)

// NewDocxTextExtractor 创建 DOCX 文本提取器
func NewDocxTextExtractor(opts ...DocxOption) *DocxTextExtractor {
	e := &DocxTextExtractor{
		logger: log.New(os.Stderr, "[DOCX解析器] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFromFile 从 DOCX 文件提取段落文本
func (e *DocxTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("打开DOCX文件 %s 失败: %w", filePath, err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	text := documentXMLToText(content)
	e.logger.Printf("DOCX解析完成: 提取了 %d 个字符 (文件 %s)", len(text), filePath)
	return text, nil
}

// documentXMLToText 遍历 document.xml，把每个 <w:p> 中 <w:t> 的字符数据
// 拼为一个段落，空段落丢弃，其余按文档顺序用换行连接。
// 命名空间前缀由解码器剥掉，这里只看局部名。
func documentXMLToText(documentXML string) string {
	decoder := xml.NewDecoder(strings.NewReader(documentXML))
	decoder.Strict = false

	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			// io.EOF 是正常结束；残缺的尾部数据就解析到哪算哪
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := current.String(); s != "" {
					paragraphs = append(paragraphs, s)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	// 没有被 </w:p> 收尾的残余文本也保留
	if s := current.String(); s != "" {
		paragraphs = append(paragraphs, s)
	}

	return strings.Join(paragraphs, "\n")
}
