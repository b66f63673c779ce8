package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfText extracts text from raw PDF bytes. pdfcpu works on files, so the
// bytes take a round trip through the temp directory; the extracted page
// content streams are then scanned for literal text strings.
func (f *Fetcher) pdfText(data []byte) (string, error) {
	tempFile, err := os.CreateTemp(f.tempDir, "ann_*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp PDF file: %w", err)
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp PDF file: %w", err)
	}

	outDir, err := os.MkdirTemp(f.tempDir, "pages_")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempName, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extraction dir: %w", err)
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		sb.WriteString(literalStrings(string(content)))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// literalStrings pulls the text out of PDF content-stream string literals
// (the parenthesized operands of Tj/TJ operators). Escaped parentheses are
// honored; everything outside literals is operator noise and dropped.
func literalStrings(content string) string {
	var sb strings.Builder
	depth := 0
	escaped := false

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if depth > 0 {
			if escaped {
				switch ch {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case '(', ')', '\\':
					sb.WriteByte(ch)
				}
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '(':
				depth++
				sb.WriteByte(ch)
			case ')':
				depth--
				if depth > 0 {
					sb.WriteByte(ch)
				} else {
					sb.WriteByte(' ')
				}
			default:
				sb.WriteByte(ch)
			}
			continue
		}
		if ch == '(' {
			depth = 1
		}
	}
	return sb.String()
}
