// Package export renders the final text as a Word document.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
)

const (
	Heading  = "English → Khmer (AI Polished)"
	Filename = "khmer_ai_polished.docx"
	MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DOCXExporter writes one level-1 heading followed by one paragraph per
// line of text. Blank lines become empty paragraphs.
type DOCXExporter struct {
	Heading string
}

func (e DOCXExporter) Export(text string) ([]byte, error) {
	heading := e.Heading
	if heading == "" {
		heading = Heading
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if _, err := doc.AddHeading(heading, 1); err != nil {
		return nil, fmt.Errorf("failed to add heading: %w", err)
	}
	for _, line := range strings.Split(text, "\n") {
		doc.AddParagraph(line)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return buf.Bytes(), nil
}

// DOCX renders text with the default heading.
func DOCX(text string) ([]byte, error) {
	return DOCXExporter{}.Export(text)
}
