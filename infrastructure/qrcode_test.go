package infrastructure

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postulaciones/domain"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestEncodeQRFullPayload(t *testing.T) {
	payload := layoutInput().Payload

	qr, err := EncodeQR(payload)
	require.NoError(t, err)
	assert.False(t, qr.Reduced)
	assert.True(t, bytes.HasPrefix(qr.PNG, pngSignature))
}

func TestEncodeQRFallsBackToReducedPayload(t *testing.T) {
	payload := layoutInput().Payload
	for i := 0; i < 80; i++ {
		payload.CurriculumFiles.Files = append(payload.CurriculumFiles.Files, domain.PayloadFile{
			Name:      fmt.Sprintf("%s-%02d.pdf", strings.Repeat("documento_sustentatorio", 2), i),
			SizeBytes: 123456,
			MediaType: "application/pdf",
		})
	}
	payload.CurriculumFiles.Count = len(payload.CurriculumFiles.Files)

	qr, err := EncodeQR(payload)
	require.NoError(t, err)
	assert.True(t, qr.Reduced)
	assert.True(t, bytes.HasPrefix(qr.PNG, pngSignature))
}
