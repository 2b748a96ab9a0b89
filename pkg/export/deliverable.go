package export

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Demo deliverable names used when an order is completed without real files.
const (
	DemoDocxName = "completed_work.docx"
	DemoPDFName  = "report.pdf"
)

// DeliverableGenerator produces minimal placeholder deliverables so a
// completed order always has something to download.
type DeliverableGenerator struct{}

// NewDeliverableGenerator constructs the generator.
func NewDeliverableGenerator() *DeliverableGenerator {
	return &DeliverableGenerator{}
}

// DemoPDF renders a one-page placeholder PDF for the order.
func (g *DeliverableGenerator) DemoPDF(orderID string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("cp1251")
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Выполненная работа для заказа #%s", shortID(orderID))), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, tr("Это демонстрационный файл."), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr("Статус: Выполнено"), "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render demo pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// DemoDocx assembles a minimal valid wordprocessing document for the order.
func (g *DeliverableGenerator) DemoDocx(orderID string) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	parts := []struct {
		name    string
		content string
	}{
		{
			name: "[Content_Types].xml",
			content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		},
		{
			name: "word/document.xml",
			content: fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Выполненная работа для заказа #%s</w:t></w:r></w:p>
<w:p><w:r><w:t>Это демонстрационный файл.</w:t></w:r></w:p>
<w:p><w:r><w:t>Статус: Выполнено</w:t></w:r></w:p>
</w:body>
</w:document>`, shortID(orderID)),
		},
		{
			name: "_rels/.rels",
			content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		},
	}

	for _, part := range parts {
		entry, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create docx part %s: %w", part.name, err)
		}
		if _, err := entry.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx: %w", err)
	}
	return buf.Bytes(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
