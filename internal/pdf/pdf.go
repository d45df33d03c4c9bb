// Package pdf renders certificate PDFs. Layout is deliberately minimal:
// rendering is an external collaborator to the certificate core, kept
// behind the Renderer interface so a real layout engine can replace the
// built-in writer without touching the engine.
package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image/color"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/dadadevs/certserver/internal/models"
)

// Renderer produces the PDF artifact for an issued certificate.
type Renderer interface {
	Render(cert *models.Certificate) ([]byte, error)
}

// A4 landscape in points.
const (
	pageWidth  = 842
	pageHeight = 595
)

const qrSize = 120

// Generator is the built-in Renderer: a single-page landscape certificate
// with the organization name, recipient, cohort, issue date, certificate id
// and a QR code pointing at the verification URL.
type Generator struct {
	orgName   string
	signatory string
}

// NewGenerator creates a Generator with the configured organization
// branding.
func NewGenerator(orgName, signatory string) *Generator {
	return &Generator{orgName: orgName, signatory: signatory}
}

// Render builds the PDF bytes for cert.
func (g *Generator) Render(cert *models.Certificate) ([]byte, error) {
	qrImage, err := qrGray(cert.VerifyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR code: %w", err)
	}

	content := g.contentStream(cert)

	var compressedQR bytes.Buffer
	zw := zlib.NewWriter(&compressedQR)
	if _, err := zw.Write(qrImage); err != nil {
		return nil, fmt.Errorf("failed to compress QR image: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress QR image: %w", err)
	}

	return assemble(content, compressedQR.Bytes()), nil
}

// qrGray renders the verification URL as an 8-bit grayscale pixel buffer.
func qrGray(url string) ([]byte, error) {
	if url == "" {
		url = "about:blank"
	}
	code, err := qr.Encode(url, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, qrSize, qrSize)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, qrSize*qrSize)
	for y := 0; y < qrSize; y++ {
		for x := 0; x < qrSize; x++ {
			g := color.GrayModel.Convert(scaled.At(x, y)).(color.Gray)
			buf = append(buf, g.Y)
		}
	}
	return buf, nil
}

// escape guards parentheses and backslashes in PDF string literals.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func (g *Generator) contentStream(cert *models.Certificate) []byte {
	sig := cert.Signature
	if len(sig) > 44 {
		sig = sig[:44] + "..."
	}
	issued := ""
	if !cert.IssuedAt.IsZero() {
		issued = cert.IssuedAt.UTC().Format("January 2, 2006")
	}

	var b bytes.Buffer
	line := func(font string, size int, x, y float64, text string) {
		fmt.Fprintf(&b, "BT /%s %d Tf %.1f %.1f Td (%s) Tj ET\n", font, size, x, y, escape(text))
	}

	// Border
	fmt.Fprintf(&b, "1 w 0.60 0.11 0.16 RG %d %d %d %d re S\n", 36, 36, pageWidth-72, pageHeight-72)
	fmt.Fprintf(&b, "0.5 w 0.91 0.89 0.85 RG %d %d %d %d re S\n", 44, 44, pageWidth-88, pageHeight-88)

	center := func(font string, size int, y float64, text string) {
		// Approximate Helvetica width at 0.5em per glyph.
		width := float64(len(text)) * float64(size) * 0.5
		line(font, size, (pageWidth-width)/2, y, text)
	}

	center("F2", 24, 500, g.orgName)
	center("F1", 16, 455, "Certificate of Completion")
	center("F1", 12, 415, "This certifies that")
	center("F2", 30, 370, cert.Name)
	center("F1", 14, 330, "has successfully completed the "+cert.Cohort+" cohort")
	if issued != "" {
		center("F1", 12, 295, "Issued on "+issued)
	}
	center("F1", 10, 120, g.signatory)
	line("F1", 8, 50, 70, "Certificate ID: "+cert.ID)
	line("F1", 8, 50, 58, "Signature: "+sig)

	// QR code, bottom right inside the border.
	fmt.Fprintf(&b, "q %d 0 0 %d %d %d cm /Qr Do Q\n", qrSize, qrSize, pageWidth-60-qrSize, 54)

	return b.Bytes()
}

// assemble emits the PDF object graph: catalog, page tree, one page, the
// content stream, two standard fonts and the QR image XObject.
func assemble(content, qrData []byte) []byte {
	var out bytes.Buffer
	offsets := make([]int, 0, 8)

	out.WriteString("%PDF-1.4\n")

	obj := func(body string) {
		offsets = append(offsets, out.Len())
		num := len(offsets)
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	streamObj := func(dict string, data []byte) {
		offsets = append(offsets, out.Len())
		num := len(offsets)
		fmt.Fprintf(&out, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
		out.Write(data)
		out.WriteString("\nendstream\nendobj\n")
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
		"/Resources << /Font << /F1 5 0 R /F2 6 0 R >> /XObject << /Qr 7 0 R >> >> "+
		"/Contents 4 0 R >>", pageWidth, pageHeight))
	streamObj("", content)
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>")
	streamObj(fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d "+
		"/ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode", qrSize, qrSize), qrData)

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(offsets)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefStart)

	return out.Bytes()
}

// Filename returns the canonical artifact name for a certificate, shared
// with the engine and the HTTP layer.
func Filename(cert *models.Certificate) string {
	return "certificate-" + cert.ID + ".pdf"
}

var _ Renderer = (*Generator)(nil)
