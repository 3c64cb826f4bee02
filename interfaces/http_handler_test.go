package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"postulaciones/application"
	"postulaciones/config"
	"postulaciones/domain"
	"postulaciones/infrastructure"
)

const testSecret = "test-secret"

type capturingRenderer struct {
	mu       sync.Mutex
	payloads []domain.VerificationPayload
}

func (r *capturingRenderer) Render(_ context.Context, s domain.CertificateSnapshot, p domain.VerificationPayload) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return []byte("%PDF-1.7 " + s.Code), nil
}

func (r *capturingRenderer) last() domain.VerificationPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payloads[len(r.payloads)-1]
}

type server struct {
	router   *gin.Engine
	db       *gorm.DB
	renderer *capturingRenderer
	dir      string
	handler  *HTTPHandler
}

func newServer(t *testing.T, limiter infrastructure.RateLimiter) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	db, err := infrastructure.OpenDatabase(config.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared", log)
	require.NoError(t, err)
	require.NoError(t, infrastructure.Migrate(db, true))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, db.Create(&[]domain.Applicant{
		{FullName: "Ana María Pérez", Email: "ana@example.com", Role: domain.RoleApplicant},
		{FullName: "Lic. Rosa Campos", Role: domain.RoleHR},
		{FullName: "Miembro Comité", Role: domain.RoleCommittee},
	}).Error)
	require.NoError(t, db.Create(&domain.Posting{
		Area: "Gestión Pedagógica", Position: "Especialista en Educación", CASNumber: "012-2025",
		PublishedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Status: domain.PostingActive,
	}).Error)
	require.NoError(t, db.Create(&domain.CurriculumFile{
		ApplicantID: 1, FileName: "cv.pdf", MediaType: "application/pdf", SizeBytes: 2048,
		UploadedAt: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	}).Error)

	dir := t.TempDir()
	artifacts, err := infrastructure.NewFileStore(dir)
	require.NoError(t, err)

	directory := infrastructure.NewDirectoryRepository(db)
	certs := infrastructure.NewCertificateRepository(db)
	verifications := infrastructure.NewVerificationRepository(db)
	ledger := application.NewLedger(verifications, verifications, time.Second, nil, log)
	minter := application.NewCodeMinter(certs, log)
	assembler := application.NewAssembler(directory, directory, directory, minter, application.AssemblerConfig{
		Timeout:          time.Second,
		Location:         time.UTC,
		FallbackReviewer: "Revisor",
	}, log)
	renderer := &capturingRenderer{}
	issuer := application.NewIssuer(assembler, renderer, nil, artifacts, certs, domain.Issuer{
		Entity:  "UGEL TALARA",
		System:  "Sistema de Postulaciones",
		Version: "2025.1",
		BaseURL: "https://ugeltalara.edu.pe",
	}, nil, log)
	resolver := application.NewResolver(certs, directory, directory, directory, ledger, nil, time.Second, log)

	router := gin.New()
	h := NewHTTPHandler(router, HandlerDeps{
		DB:           db,
		Issuer:       issuer,
		Resolver:     resolver,
		Ledger:       ledger,
		Certificates: certs,
		Limiter:      limiter,
		Metrics:      infrastructure.NewMetrics().Handler(),
		JWTSecret:    testSecret,
		Log:          log,
	})
	return &server{router: router, db: db, renderer: renderer, dir: dir, handler: h}
}

func (s *server) do(t *testing.T, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&domain.Verification{}).Count(&n).Error)
	return n
}

func token(t *testing.T, id uint, role string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, id, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIssueThenVerifyByCode(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados", token(t, 1, domain.RoleApplicant), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.CertificateMediaType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	payload := s.renderer.last()
	assert.Equal(t, "%PDF-1.7 "+payload.Code, w.Body.String())

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "artifact must be removed after delivery")

	w = s.do(t, http.MethodGet, "/certificados/verificar/"+payload.Code, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["valido"])
	assert.Equal(t, "Certificado verificado exitosamente", body["mensaje"])
	postulante := body["postulante"].(map[string]any)
	assert.Equal(t, float64(1), postulante["id"])
	assert.Equal(t, "Ana María Pérez", postulante["nombreCompleto"])
	convocatoria := body["convocatoria"].(map[string]any)
	assert.Equal(t, "012-2025", convocatoria["numeroCas"])
	archivos := body["archivos"].(map[string]any)
	assert.Len(t, archivos["curriculum"], 1)

	assert.EqualValues(t, 1, s.ledgerCount(t))
}

func TestIssueRequiresToken(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Acceso denegado. Se requiere un token.", decode(t, w)["message"])

	w = s.do(t, http.MethodPost, "/certificados", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token inválido o expirado.", decode(t, w)["message"])

	expired, err := IssueToken(testSecret, 1, domain.RoleApplicant, -time.Minute)
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/certificados", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := IssueToken("other-secret", 1, domain.RoleApplicant, time.Hour)
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/certificados", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueUnknownApplicant(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados", token(t, 404, domain.RoleApplicant), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Usuario no encontrado.", decode(t, w)["message"])

	var n int64
	require.NoError(t, s.db.Model(&domain.Certificate{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestIssueWithoutUserID(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados", token(t, 0, domain.RoleApplicant), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Usuario no autenticado.", decode(t, w)["message"])
}

func TestVerifyUnknownCode(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodGet, "/certificados/verificar/CERT-99999999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Certificado no encontrado.", body["message"])
	assert.Equal(t, "CERT-99999999", body["codigo"])

	// Misses are recorded too.
	assert.EqualValues(t, 1, s.ledgerCount(t))
}

func TestVerifyByFragmentDoesNotExposeIssuedCertificates(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados", token(t, 1, domain.RoleApplicant), nil)
	require.Equal(t, http.StatusOK, w.Code)
	code := s.renderer.last().Code

	for _, fragment := range []string{".pdf", "CERT-", "Certificado", code[len(code)-4:]} {
		w = s.do(t, http.MethodGet, "/certificados/verificar/"+fragment, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, fragment)
		assert.NotContains(t, w.Body.String(), "ana@example.com", fragment)
	}
}

func TestVerifyPayloadRoundTrip(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados", token(t, 1, domain.RoleApplicant), nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw, err := json.Marshal(s.renderer.last())
	require.NoError(t, err)

	w = s.do(t, http.MethodPost, "/certificados/verificar", "", raw)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["valido"])
	assert.Equal(t, "Certificado verificado y registrado en sesión de comité", body["mensaje"])
	assert.Equal(t, s.renderer.last().Code, body["datosQR"].(map[string]any)["certificado"])
	completos := body["datosCompletos"].(map[string]any)
	assert.Equal(t, "Ana María Pérez", completos["postulante"].(map[string]any)["nombreCompleto"])
	assert.Equal(t, true, body["sesionComite"].(map[string]any)["registrado"])
	assert.EqualValues(t, 1, s.ledgerCount(t))
}

func TestVerifyPayloadMiss(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/certificados/verificar", "", []byte(`{"certificado":"CERT-00000000"}`))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["valido"])
	assert.Nil(t, body["datosCompletos"])
	assert.EqualValues(t, 1, s.ledgerCount(t))
}

func TestVerifyPayloadRejectsMissingCode(t *testing.T) {
	s := newServer(t, nil)

	for _, raw := range []string{`{}`, `{"certificado":42}`, `not json`, ``} {
		w := s.do(t, http.MethodPost, "/certificados/verificar", "", []byte(raw))
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		assert.Equal(t, "Datos del QR no válidos.", decode(t, w)["message"], raw)
	}
	assert.Zero(t, s.ledgerCount(t))
}

func TestVerifyPayloadRejectsOversizedBody(t *testing.T) {
	s := newServer(t, nil)

	padding := bytes.Repeat([]byte("x"), maxPayloadBytes)
	raw := []byte(`{"certificado":"CERT-12345678","relleno":"` + string(padding) + `"}`)
	w := s.do(t, http.MethodPost, "/certificados/verificar", "", raw)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Datos del QR no válidos.", decode(t, w)["message"])
	assert.Zero(t, s.ledgerCount(t))

	w = s.do(t, http.MethodPost, "/certificados/verificar", "", []byte(`{"certificado":"CERT-12345678"}`))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListVerificationsRoles(t *testing.T) {
	s := newServer(t, nil)
	s.do(t, http.MethodGet, "/certificados/verificar/CERT-11111111", "", nil)
	s.do(t, http.MethodPost, "/certificados/verificar", "", []byte(`{"certificado":"CERT-22222222"}`))

	w := s.do(t, http.MethodGet, "/certificados/verificaciones", token(t, 1, domain.RoleApplicant), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "No tienes permiso para realizar esta acción.", decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/certificados/verificaciones", token(t, 3, domain.RoleCommittee), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(2), body["total"])
	assert.NotEmpty(t, body["fechaConsulta"])
	rows := body["verificaciones"].([]any)
	require.Len(t, rows, 2)
	newest := rows[0].(map[string]any)
	assert.Equal(t, "CERT-22222222", newest["codigoCertificado"])
	assert.Equal(t, "CERT-22222222", newest["datosQR"].(map[string]any)["certificado"])
	assert.Nil(t, newest["datosVerificados"])

	w = s.do(t, http.MethodGet, "/documentos/verificaciones-sesion-comite?limit=1", token(t, 9, domain.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestListVerificationsDateBounds(t *testing.T) {
	s := newServer(t, nil)
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{day.Add(-time.Hour), day.Add(23 * time.Hour), day.AddDate(0, 0, 1).Add(time.Minute)} {
		require.NoError(t, s.db.Create(&domain.Verification{
			Code: "CERT-1", QueryPayload: `"CERT-1"`, VerifiedAt: at, SourceAddress: "10.0.0.1", Channel: domain.ChannelCode,
		}).Error)
	}
	admin := token(t, 9, domain.RoleAdmin)

	w := s.do(t, http.MethodGet, "/certificados/verificaciones?fechaInicio=2025-03-05&fechaFin=2025-03-05", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = s.do(t, http.MethodGet, "/certificados/verificaciones?fechaInicio=2025-03-05", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["total"])

	w = s.do(t, http.MethodGet, "/certificados/verificaciones?fechaInicio=2025-03-06&fechaFin=2025-03-05", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/certificados/verificaciones?fechaInicio=ayer", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/certificados/verificaciones?limit=-1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOwnCertificates(t *testing.T) {
	s := newServer(t, nil)
	applicant := token(t, 1, domain.RoleApplicant)

	s.do(t, http.MethodPost, "/certificados", applicant, nil)
	s.do(t, http.MethodPost, "/documentos/generar-certificado", applicant, nil)

	w := s.do(t, http.MethodGet, "/certificados", applicant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["total"])
	first := body["certificados"].([]any)[0].(map[string]any)
	assert.Equal(t, s.renderer.last().Code, first["codigo"])

	w = s.do(t, http.MethodGet, "/certificados", token(t, 3, domain.RoleCommittee), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total"])
}

func TestPublicVerificationIsRateLimited(t *testing.T) {
	s := newServer(t, infrastructure.NewMemoryRateLimiter(2))

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodGet, "/certificados/verificar/CERT-1", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w := s.do(t, http.MethodGet, "/certificados/verificar/CERT-1", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.EqualValues(t, 2, s.ledgerCount(t))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
