package infrastructure

import (
	"encoding/json"
	"image/color"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"

	"postulaciones/domain"
)

const qrSize = 320

var (
	navy  = color.RGBA{R: 0x00, G: 0x33, B: 0x66, A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// QRImage is an encoded QR code and whether it carries the reduced payload.
type QRImage struct {
	PNG     []byte
	Reduced bool
}

// EncodeQR encodes the full payload as JSON, falling back to the reduced
// payload when the full one does not fit in a QR symbol.
func EncodeQR(payload domain.VerificationPayload) (QRImage, error) {
	full, err := json.Marshal(payload)
	if err != nil {
		return QRImage{}, errors.Wrap(err, "qr: encode payload")
	}
	png, fullErr := encodePNG(full)
	if fullErr == nil {
		return QRImage{PNG: png}, nil
	}

	reduced, err := json.Marshal(payload.Reduced())
	if err != nil {
		return QRImage{}, errors.Wrap(err, "qr: encode reduced payload")
	}
	png, err = encodePNG(reduced)
	if err != nil {
		return QRImage{}, errors.Wrapf(err, "qr: reduced payload after %v", fullErr)
	}
	return QRImage{PNG: png, Reduced: true}, nil
}

func encodePNG(content []byte) ([]byte, error) {
	q, err := qrcode.New(string(content), qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.ForegroundColor = navy
	q.BackgroundColor = white
	return q.PNG(qrSize)
}
