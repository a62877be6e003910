// Package extractor normalises heterogeneous document bytes into plain
// text, dispatching on the MIME type reported by the drive.
package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// MIME types with dedicated handling.
const (
	MimeTypePDF  = "application/pdf"
	MimeTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeJSON = "application/json"
)

// Extractor turns raw file bytes into plain text. Native Workspace
// formats never reach it; those are exported to text by the drive
// adapter before extraction.
type Extractor struct{}

// New creates a new extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the format hint. Unrecognised types get a
// best-effort UTF-8 decode rather than an error, so unknown but textual
// formats still ingest.
func (e *Extractor) Extract(content []byte, mimeType, fileName string) (string, error) {
	switch {
	case mimeType == MimeTypePDF:
		return extractPDF(content, fileName)
	case mimeType == MimeTypeDOCX || strings.HasSuffix(fileName, ".docx"):
		return extractDOCX(content, fileName)
	case strings.HasPrefix(mimeType, "text/") || strings.HasSuffix(fileName, ".txt"):
		return string(content), nil
	case mimeType == MimeTypeJSON:
		return string(content), nil
	default:
		// Best-effort decode for everything else
		return string(content), nil
	}
}

// extractPDF parses a PDF byte stream into plain text.
func extractPDF(content []byte, fileName string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", fileName, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", fileName, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf buffer %s: %w", fileName, err)
	}

	return buf.String(), nil
}

// extractDOCX extracts raw text from a Word document, discarding
// formatting. A DOCX file is a ZIP archive; the text lives in
// word/document.xml.
func extractDOCX(content []byte, fileName string) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", fileName, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml in %s: %w", fileName, err)
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml in %s: %w", fileName, err)
		}

		return parseDocumentXML(data)
	}

	return "", fmt.Errorf("docx %s: no word/document.xml entry", fileName)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML extracts text content from the document XML.
// Paragraphs are separated with a blank line so downstream paragraph
// splitting sees them as distinct.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n\n")
		}
		for _, r := range para.Runs {
			for _, text := range r.Text {
				result.WriteString(text.Content)
			}
		}
	}

	return strings.TrimSpace(result.String()), nil
}
