package infrastructure

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/creator"
	"github.com/unidoc/unipdf/v3/model"

	"postulaciones/domain"
)

// ApplyPDFLicense registers the metered unidoc key. unipdf refuses to write
// documents until a license is set.
func ApplyPDFLicense(key string) error {
	if key == "" {
		return errors.New("unipdf license: empty key")
	}
	return errors.Wrap(license.SetMeteredKey(key), "unipdf license")
}

type textFormat struct {
	font      *model.PdfFont
	size      float64
	color     creator.Color
	spaceTop  float64
	spaceDown float64
}

// PDFRenderer draws certificates with the unipdf creator. It re-reads the
// active postings for the first page at render time.
type PDFRenderer struct {
	postings    domain.PostingReader
	institution domain.Issuer
	location    *time.Location
	now         func() time.Time
	log         zerolog.Logger

	regular *model.PdfFont
	bold    *model.PdfFont
	oblique *model.PdfFont
}

func NewPDFRenderer(postings domain.PostingReader, institution domain.Issuer, loc *time.Location, log zerolog.Logger) (*PDFRenderer, error) {
	regular, err := model.NewStandard14Font(model.HelveticaName)
	if err != nil {
		return nil, errors.Wrap(err, "load Helvetica")
	}
	bold, err := model.NewStandard14Font(model.HelveticaBoldName)
	if err != nil {
		return nil, errors.Wrap(err, "load Helvetica-Bold")
	}
	oblique, err := model.NewStandard14Font(model.HelveticaObliqueName)
	if err != nil {
		return nil, errors.Wrap(err, "load Helvetica-Oblique")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PDFRenderer{
		postings:    postings,
		institution: institution,
		location:    loc,
		now:         time.Now,
		log:         log.With().Str("component", "pdf_renderer").Logger(),
		regular:     regular,
		bold:        bold,
		oblique:     oblique,
	}, nil
}

func (r *PDFRenderer) Render(ctx context.Context, snapshot domain.CertificateSnapshot, payload domain.VerificationPayload) ([]byte, error) {
	active, postingsErr := r.postings.ActivePostings(ctx, availablePostings)
	if postingsErr != nil {
		r.log.Warn().Err(postingsErr).Msg("active postings unavailable, rendering notice")
	}

	in := LayoutInput{
		Snapshot:       snapshot,
		Payload:        payload,
		Institution:    r.institution,
		ActivePostings: active,
		PostingsErr:    postingsErr,
		GeneratedAt:    r.now().In(r.location),
	}
	if qr, err := EncodeQR(payload); err != nil {
		r.log.Warn().Err(err).Str("code", snapshot.Code).Msg("qr code could not be encoded")
	} else {
		if qr.Reduced {
			r.log.Info().Str("code", snapshot.Code).Msg("qr code carries the reduced payload")
		}
		in.QR = &qr
	}

	if err := ctx.Err(); err != nil {
		return nil, domain.RenderFailure("Error al generar el certificado", err)
	}
	out, err := r.draw(BuildCertificateLayout(in))
	if err != nil {
		return nil, domain.RenderFailure("Error al generar el certificado", err)
	}
	return out, nil
}

func (r *PDFRenderer) draw(layout CertificateLayout) ([]byte, error) {
	c := creator.New()
	c.SetPageSize(creator.PageSizeA4)
	c.SetPageMargins(64, 64, 60, 60)

	for _, page := range layout.Pages {
		c.NewPage()
		if err := r.drawFrame(c); err != nil {
			return nil, err
		}
		for _, blk := range page.Blocks {
			if err := r.drawBlock(c, blk); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "write pdf")
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) drawFrame(c *creator.Creator) error {
	w, h := c.Width(), c.Height()

	outer := c.NewRectangle(25, 25, w-50, h-50)
	outer.SetBorderColor(creator.ColorRGBFromHex("#DAA520"))
	outer.SetBorderWidth(4)
	if err := c.Draw(outer); err != nil {
		return errors.Wrap(err, "draw frame")
	}

	inner := c.NewRectangle(40, 40, w-80, h-80)
	inner.SetBorderColor(creator.ColorRGBFromHex("#003366"))
	inner.SetBorderWidth(2)
	return errors.Wrap(c.Draw(inner), "draw frame")
}

func (r *PDFRenderer) drawBlock(c *creator.Creator, blk Block) error {
	switch blk.Kind {
	case BlockRule:
		return r.drawRule(c, blk.Rule)
	case BlockImage:
		img, err := c.NewImageFromData(blk.Image)
		if err != nil {
			r.log.Warn().Err(err).Msg("qr image could not be embedded")
			return r.drawText(c, Block{Kind: BlockText, Style: StyleAlert, Align: AlignCenter, Text: QRPlaceholder})
		}
		img.ScaleToWidth(150)
		img.SetHorizontalAlignment(creator.HorizontalAlignmentCenter)
		img.SetMargins(0, 0, 10, 10)
		return errors.Wrap(c.Draw(img), "draw qr")
	default:
		return r.drawText(c, blk)
	}
}

func (r *PDFRenderer) drawRule(c *creator.Creator, color RuleColor) error {
	ctx := c.Context()
	y := ctx.Y + 6
	line := c.NewLine(90, y, c.Width()-90, y)
	if color == RuleGold {
		line.SetColor(creator.ColorRGBFromHex("#FFD700"))
		line.SetLineWidth(2)
	} else {
		line.SetColor(creator.ColorRGBFromHex("#003366"))
		line.SetLineWidth(1)
	}
	if err := c.Draw(line); err != nil {
		return errors.Wrap(err, "draw rule")
	}
	c.MoveDown(14)
	return nil
}

func (r *PDFRenderer) drawText(c *creator.Creator, blk Block) error {
	f := r.format(blk.Style)
	p := c.NewStyledParagraph()
	chunk := p.Append(blk.Text)
	chunk.Style.Font = f.font
	chunk.Style.FontSize = f.size
	chunk.Style.Color = f.color

	switch blk.Align {
	case AlignCenter:
		p.SetTextAlignment(creator.TextAlignmentCenter)
	case AlignJustify:
		p.SetTextAlignment(creator.TextAlignmentJustify)
	default:
		p.SetTextAlignment(creator.TextAlignmentLeft)
	}
	p.SetMargins(blk.Indent, 0, f.spaceTop, f.spaceDown)
	return errors.Wrap(c.Draw(p), "draw text")
}

func (r *PDFRenderer) format(style TextStyle) textFormat {
	navy := creator.ColorRGBFromHex("#003366")
	black := creator.ColorBlack
	grey := creator.ColorRGBFromHex("#666666")

	switch style {
	case StyleHeader:
		return textFormat{r.bold, 16, navy, 10, 2}
	case StyleBanner:
		return textFormat{r.bold, 24, navy, 2, 4}
	case StyleTitle:
		return textFormat{r.bold, 34, black, 6, 0}
	case StyleSubtitle:
		return textFormat{r.regular, 15, navy, 0, 14}
	case StyleLead:
		return textFormat{r.regular, 14, black, 4, 6}
	case StyleName:
		return textFormat{r.bold, 22, navy, 2, 12}
	case StyleSection:
		return textFormat{r.bold, 13, navy, 8, 4}
	case StyleLabel:
		return textFormat{r.bold, 11, navy, 4, 2}
	case StyleSubItem:
		return textFormat{r.regular, 9, grey, 0, 1}
	case StyleCaption:
		return textFormat{r.oblique, 11, creator.ColorRGBFromHex("#555555"), 2, 2}
	case StyleMuted:
		return textFormat{r.oblique, 10, grey, 4, 4}
	case StyleAlert:
		return textFormat{r.bold, 12, creator.ColorRGBFromHex("#B00020"), 10, 10}
	case StyleFooter:
		return textFormat{r.regular, 9, black, 0, 1}
	case StyleBody:
		return textFormat{r.regular, 10, black, 2, 3}
	default:
		return textFormat{r.regular, 10, black, 0, 2}
	}
}
