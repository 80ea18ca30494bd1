package infrastructure

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// maxExtractedChars caps stored resume text; prompts do not need more.
const maxExtractedChars = 5000

// ResumeExtractor pulls plain text out of uploaded resume files. Extraction is
// best-effort: the second return is false on failure and the upload proceeds
// with no extracted text.
type ResumeExtractor struct {
	logger *zap.Logger
}

func NewResumeExtractor(logger *zap.Logger) *ResumeExtractor {
	return &ResumeExtractor{logger: logger}
}

// ExtractText extracts text from resume files by extension (txt, pdf, docx).
func (e *ResumeExtractor) ExtractText(data []byte, filename string) (string, bool) {
	ext := ""
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = strings.ToLower(filename[idx+1:])
	}

	var (
		text string
		err  error
	)
	switch ext {
	case "txt":
		text = string(data)
	case "pdf":
		text, err = extractTextFromPDF(data)
	case "doc", "docx":
		text, err = extractTextFromDocx(data)
	default:
		// Unknown formats: keep whatever is readable rather than failing.
		text = string(data)
	}

	if err != nil {
		e.logger.Warn("resume text extraction failed",
			zap.String("filename", filename), zap.Error(err))
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if len(text) > maxExtractedChars {
		text = text[:maxExtractedChars]
	}
	return text, true
}

func extractTextFromPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var textBuilder strings.Builder
	extractedAnyText := false

	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue // skip pages with errors
		}

		ex, err := extractor.New(page)
		if err != nil {
			continue
		}

		pageText, err := ex.ExtractText()
		if err != nil || pageText == "" {
			continue
		}

		extractedAnyText = true
		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	if !extractedAnyText {
		return "", fmt.Errorf("no text could be extracted from any page of the PDF")
	}
	return strings.TrimSpace(textBuilder.String()), nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func extractTextFromDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	// The library exposes the raw document XML; paragraph ends become newlines
	// and the remaining markup is stripped.
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagPattern.ReplaceAllString(content, "")
	return content, nil
}
