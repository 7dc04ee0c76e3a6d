package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/quotedesk/quotedesk/web"
)

var documentTemplate = template.Must(
	template.New("quotation_pdf.html").ParseFS(web.Templates, "templates/reports/quotation_pdf.html"),
)

// HTML renders doc as a standalone page with images inlined.
func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render quotation html: %w", err)
	}
	return buf.Bytes(), nil
}
