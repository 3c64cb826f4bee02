package infrastructure

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"postulaciones/domain"
)

const minCertificatePages = 2

// PDFInspector re-opens a rendered certificate before it is stored.
type PDFInspector struct{}

// Inspect checks that content is a readable PDF with both certificate pages
// and that the first page carries the code.
func (PDFInspector) Inspect(content []byte, code string) error {
	pages, err := ExtractPageText(content)
	if err != nil {
		return domain.RenderFailure("El certificado generado no es válido.", err)
	}
	if len(pages) < minCertificatePages {
		return domain.RenderFailure("El certificado generado no es válido.",
			errors.Errorf("expected %d pages, got %d", minCertificatePages, len(pages)))
	}
	if !strings.Contains(pages[0], code) {
		return domain.RenderFailure("El certificado generado no es válido.",
			errors.Errorf("code %s not found on first page", code))
	}
	return nil
}

// ExtractPageText returns the text of every page. Pages that cannot be read
// yield an empty string.
func ExtractPageText(data []byte) ([]string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read PDF")
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page count")
	}
	if numPages == 0 {
		return nil, errors.New("PDF has no pages")
	}

	texts := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		texts[i-1] = pageText
	}
	return texts, nil
}
