package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/Kondrashov16/arkiv/models"
)

// SetUnidocLicense registers the unipdf metered license key. Without a key
// PDF extraction fails at parse time; other formats are unaffected.
func SetUnidocLicense(key string) {
	if key == "" {
		log.Println("WARN: UNIDOC_LICENSE_KEY not set, PDF extraction will fail.")
		return
	}
	if err := license.SetMeteredKey(key); err != nil {
		log.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.", err)
	}
}

// ExtractText converts an uploaded file's bytes into plain text, dispatching
// on the original filename's extension. A valid but content-empty file
// yields "" with no error; chunking empty text then produces zero chunks.
func ExtractText(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md":
		return strings.TrimSpace(string(data)), nil
	case ".pdf":
		return extractTextFromPDF(data)
	case ".docx":
		return extractTextFromDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s (supported: .pdf, .docx, .md, .txt)", models.ErrUnsupportedFormat, ext)
	}
}

// extractTextFromPDF uses UniPDF to get all text from a PDF.
func extractTextFromPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: could not read PDF: %v", models.ErrExtractionFailed, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("%w: could not read PDF page count: %v", models.ErrExtractionFailed, err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("%w: could not read PDF page %d: %v", models.ErrExtractionFailed, i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("%w: could not extract PDF page %d: %v", models.ErrExtractionFailed, i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("%w: could not extract PDF page %d: %v", models.ErrExtractionFailed, i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n") // space between pages
	}
	return strings.TrimSpace(sb.String()), nil
}

// docxDocument mirrors the paragraph/run structure of word/document.xml.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// extractTextFromDOCX reads a DOCX (a zip archive) and concatenates the
// paragraph text from word/document.xml.
func extractTextFromDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid DOCX archive: %v", models.ErrExtractionFailed, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: could not open document.xml: %v", models.ErrExtractionFailed, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: could not read document.xml: %v", models.ErrExtractionFailed, err)
		}

		var doc docxDocument
		if err := xml.Unmarshal(content, &doc); err != nil {
			return "", fmt.Errorf("%w: malformed document.xml: %v", models.ErrExtractionFailed, err)
		}

		var sb strings.Builder
		for i, para := range doc.Body.Paragraphs {
			if i > 0 {
				sb.WriteString("\n")
			}
			for _, run := range para.Runs {
				for _, t := range run.Text {
					sb.WriteString(t.Content)
				}
			}
		}
		return strings.TrimSpace(sb.String()), nil
	}
	// Archive opened but holds no document body: treat as empty content.
	return "", nil
}
