package infrastructure

import (
	"fmt"
	"strings"
	"time"

	"postulaciones/domain"
)

type BlockKind int

const (
	BlockText BlockKind = iota
	BlockRule
	BlockImage
)

type TextStyle int

const (
	StyleHeader TextStyle = iota
	StyleBanner
	StyleTitle
	StyleSubtitle
	StyleLead
	StyleName
	StyleSection
	StyleLabel
	StyleBody
	StyleItem
	StyleSubItem
	StyleCaption
	StyleMuted
	StyleAlert
	StyleFooter
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignJustify
)

type RuleColor int

const (
	RuleGold RuleColor = iota
	RuleNavy
)

// Block is one element of a certificate page, drawn top to bottom.
type Block struct {
	Kind   BlockKind
	Style  TextStyle
	Align  Align
	Indent float64
	Text   string
	Rule   RuleColor
	Image  []byte
}

type Page struct {
	Blocks []Block
}

// CertificateLayout is the renderer-independent description of the
// two-page certificate.
type CertificateLayout struct {
	Pages []Page
}

// Text returns every text block, one per line. Used for inspection.
func (l CertificateLayout) Text() string {
	var b strings.Builder
	for _, p := range l.Pages {
		for _, blk := range p.Blocks {
			if blk.Kind == BlockText {
				b.WriteString(blk.Text)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

const (
	QRPlaceholder      = "No se pudo mostrar el código QR"
	postingsErrorText  = "Error al obtener convocatorias"
	noPostingsText     = "No hay convocatorias activas disponibles"
	availablePostings  = 5
	institutionAddress = "UGEL Talara - Av. Grau 123, Talara, Piura, Perú"
	institutionContact = "Teléfono: (073) 123-456 | Email: ugel@talara.edu.pe"
	institutionSite    = "www.ugeltalara.edu.pe"
)

// LayoutInput is everything the layout needs. ActivePostings is a fresh read
// taken at render time and may differ from the snapshot posting.
type LayoutInput struct {
	Snapshot       domain.CertificateSnapshot
	Payload        domain.VerificationPayload
	Institution    domain.Issuer
	ActivePostings []domain.Posting
	PostingsErr    error
	QR             *QRImage
	GeneratedAt    time.Time
}

type pageBuilder struct {
	blocks []Block
}

func (b *pageBuilder) text(style TextStyle, align Align, format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	b.blocks = append(b.blocks, Block{Kind: BlockText, Style: style, Align: align, Text: text})
}

func (b *pageBuilder) item(style TextStyle, indent float64, format string, args ...any) {
	b.blocks = append(b.blocks, Block{
		Kind:   BlockText,
		Style:  style,
		Indent: indent,
		Text:   fmt.Sprintf(format, args...),
	})
}

func (b *pageBuilder) rule(c RuleColor) {
	b.blocks = append(b.blocks, Block{Kind: BlockRule, Rule: c})
}

func (b *pageBuilder) footer() {
	b.rule(RuleGold)
	b.text(StyleFooter, AlignCenter, institutionAddress)
	b.text(StyleFooter, AlignCenter, institutionContact)
	b.text(StyleFooter, AlignCenter, institutionSite)
}

func (b *pageBuilder) page() Page { return Page{Blocks: b.blocks} }

func BuildCertificateLayout(in LayoutInput) CertificateLayout {
	return CertificateLayout{Pages: []Page{firstPage(in), secondPage(in)}}
}

func firstPage(in LayoutInput) Page {
	s := in.Snapshot
	var b pageBuilder

	b.text(StyleHeader, AlignCenter, "UNIDAD DE GESTIÓN EDUCATIVA LOCAL")
	b.text(StyleBanner, AlignCenter, "%s", in.Institution.Entity)
	b.rule(RuleGold)
	b.text(StyleTitle, AlignCenter, "CERTIFICADO")
	b.text(StyleSubtitle, AlignCenter, "DE REGISTRO Y POSTULACIÓN")
	b.text(StyleLead, AlignCenter, "La %s certifica que", in.Institution.Entity)
	b.text(StyleName, AlignCenter, "%s", strings.ToUpper(s.Applicant.FullName))

	b.text(StyleSection, AlignCenter, "INFORMACIÓN DE LA POSTULACIÓN")
	b.text(StyleLabel, AlignLeft, "DATOS DEL POSTULANTE:")
	b.item(StyleItem, 20, "• Nombre Completo: %s", s.Applicant.FullName)
	b.item(StyleItem, 20, "• Correo Electrónico: %s", s.Applicant.Email)
	b.text(StyleLabel, AlignLeft, "DATOS DE LA CONVOCATORIA:")
	b.item(StyleItem, 20, "• Puesto: %s", s.Posting.Position)
	b.item(StyleItem, 20, "• Número CAS: %s", s.Posting.CASNumber)
	b.item(StyleItem, 20, "• Área: %s", s.Posting.Area)
	b.item(StyleItem, 20, "• URL: %s", domain.PostingURL(in.Institution.BaseURL, s.Posting.Ref))
	b.item(StyleItem, 20, "• Verificación: %s", in.Payload.VerificationURL)

	b.text(StyleCaption, AlignCenter, "Código del Certificado: %s", s.Code)
	b.text(StyleCaption, AlignCenter, "Emitido el %s a las %s", s.Date, s.Time)
	b.rule(RuleNavy)

	b.text(StyleSection, AlignCenter, "CONVOCATORIAS DISPONIBLES")
	switch {
	case in.PostingsErr != nil:
		b.item(StyleMuted, 20, "%s", postingsErrorText)
	case len(in.ActivePostings) == 0:
		b.item(StyleMuted, 20, "%s", noPostingsText)
	default:
		b.item(StyleBody, 20, "Convocatorias activas:")
		for i, p := range in.ActivePostings {
			if i == availablePostings {
				break
			}
			info := p.Info()
			b.item(StyleSubItem, 40, "%d. %s - CAS: %s - %s", i+1, info.Position, info.CASNumber, info.Area)
		}
	}
	b.rule(RuleNavy)
	b.footer()
	return b.page()
}

func secondPage(in LayoutInput) Page {
	s := in.Snapshot
	var b pageBuilder

	b.text(StyleBanner, AlignCenter, "INFORMACIÓN DE VERIFICACIÓN")
	b.rule(RuleGold)
	b.text(StyleMuted, AlignCenter, "Escanea el código QR para verificar la autenticidad del certificado.")
	if in.QR != nil && len(in.QR.PNG) > 0 {
		b.blocks = append(b.blocks, Block{Kind: BlockImage, Align: AlignCenter, Image: in.QR.PNG})
		if in.QR.Reduced {
			b.text(StyleCaption, AlignCenter, "Código QR con datos resumidos")
		}
	} else {
		b.text(StyleAlert, AlignCenter, QRPlaceholder)
	}
	b.rule(RuleNavy)

	b.text(StyleSection, AlignLeft, "DATOS DE LA CONVOCATORIA")
	b.item(StyleItem, 20, "• Puesto: %s", s.Posting.Position)
	b.item(StyleItem, 20, "• Número CAS: %s", s.Posting.CASNumber)
	b.item(StyleItem, 20, "• Área: %s", s.Posting.Area)
	b.rule(RuleGold)

	b.text(StyleSection, AlignCenter, "INFORMACIÓN DEL SISTEMA")
	b.text(StyleLabel, AlignCenter, "Datos de verificación y seguimiento")
	b.text(StyleBody, AlignJustify, "Este certificado ha sido generado automáticamente por el %s %s.",
		in.Institution.System, in.Institution.Entity)
	b.text(StyleBody, AlignJustify,
		"El postulante ha completado exitosamente el proceso de registro y postulación en nuestra plataforma digital.")
	b.text(StyleBody, AlignJustify,
		"Para verificar la autenticidad de este certificado, utilice el código QR o visite la URL de verificación.")

	b.text(StyleSection, AlignCenter, "DETALLES TÉCNICOS")
	b.item(StyleItem, 0, "• Sistema: %s", in.Institution.System)
	b.item(StyleItem, 0, "• Versión: %s", in.Institution.Version)
	b.item(StyleItem, 0, "• Fecha de generación: %s", domain.FormatDateTime(in.GeneratedAt))
	b.item(StyleItem, 0, "• Código de verificación: %s", s.Code)
	b.item(StyleItem, 0, "• Responsable de Recursos Humanos: %s", s.ReviewerName)

	if len(s.Curricula) > 0 || len(s.Annexes) > 0 {
		b.text(StyleSection, AlignCenter, "ARCHIVOS ADJUNTADOS")
		fileList(&b, "Currículum", s.Curricula)
		fileList(&b, "Anexos", s.Annexes)
	}

	b.text(StyleMuted, AlignJustify,
		"Nota: Este certificado es válido únicamente para fines de verificación del proceso de postulación. "+
			"Las declaraciones juradas correspondientes se encuentran en el formulario de anexos del postulante.")
	b.footer()
	return b.page()
}

func fileList(b *pageBuilder, label string, files []domain.FileSummary) {
	if len(files) == 0 {
		return
	}
	b.item(StyleItem, 0, "• %s: %d archivo(s)", label, len(files))
	for _, f := range files {
		b.item(StyleSubItem, 20, "- %s (%d KB)", f.Name, f.SizeKB())
	}
}
