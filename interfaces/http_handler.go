package interfaces

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"postulaciones/application"
	"postulaciones/domain"
	"postulaciones/infrastructure"
)

// maxPayloadBytes bounds a scanned payload. The body is stored verbatim.
const maxPayloadBytes = 64 << 10

// Roles allowed to read the verification ledger.
var ledgerRoles = []string{domain.RoleAdmin, domain.RoleCommittee}

// HandlerDeps groups what the HTTP layer needs. Limiter and Metrics are
// optional. Location is used for date-only ledger bounds and defaults to UTC.
type HandlerDeps struct {
	DB           *gorm.DB
	Issuer       *application.Issuer
	Resolver     *application.Resolver
	Ledger       *application.Ledger
	Certificates domain.CertificateStore
	Limiter      infrastructure.RateLimiter
	Metrics      http.Handler
	JWTSecret    string
	Location     *time.Location
	Log          zerolog.Logger
}

type HTTPHandler struct {
	DB           *gorm.DB
	Issuer       *application.Issuer
	Resolver     *application.Resolver
	Ledger       *application.Ledger
	Certificates domain.CertificateStore
	loc          *time.Location
	log          zerolog.Logger
	now          func() time.Time
}

func NewHTTPHandler(router *gin.Engine, deps HandlerDeps) *HTTPHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	h := &HTTPHandler{
		DB:           deps.DB,
		Issuer:       deps.Issuer,
		Resolver:     deps.Resolver,
		Ledger:       deps.Ledger,
		Certificates: deps.Certificates,
		loc:          loc,
		log:          deps.Log.With().Str("component", "http").Logger(),
		now:          time.Now,
	}

	router.GET("/healthz", h.Health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	auth := Authenticate(deps.JWTSecret)
	var limit gin.HandlerFunc
	if deps.Limiter != nil {
		limit = RateLimit(deps.Limiter, deps.Log)
	}
	public := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if limit == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{limit, handler}
	}

	certs := router.Group("/certificados")
	certs.POST("", auth, h.IssueCertificate)
	certs.GET("", auth, h.ListCertificates)
	certs.GET("/verificar/:codigo", public(h.VerifyByCode)...)
	certs.POST("/verificar", public(h.VerifyPayload)...)
	certs.GET("/verificaciones", auth, RequireRoles(ledgerRoles...), h.ListVerifications)

	// Paths used by the existing front end.
	legacy := router.Group("/documentos")
	legacy.POST("/generar-certificado", auth, h.IssueCertificate)
	legacy.GET("/verificar-certificado/:codigo", public(h.VerifyByCode)...)
	legacy.POST("/verificar-certificado", public(h.VerifyPayload)...)
	legacy.GET("/verificaciones-sesion-comite", auth, RequireRoles(ledgerRoles...), h.ListVerifications)

	return h
}

// IssueCertificate generates a certificate for the caller and sends it as a
// PDF attachment. The stored artifact is removed once the response is written.
func (h *HTTPHandler) IssueCertificate(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok || caller.UserID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Usuario no autenticado."})
		return
	}

	issued, err := h.Issuer.Issue(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, err, "Error al generar el certificado")
		return
	}
	defer func() {
		if err := issued.Release(); err != nil {
			h.log.Warn().Err(err).Str("code", issued.Certificate.Code).Msg("failed to remove certificate artifact")
		}
	}()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": issued.Certificate.FileName})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, domain.CertificateMediaType, issued.Content)

	if len(c.Errors) > 0 {
		h.log.Error().Err(c.Errors.Last()).Str("code", issued.Certificate.Code).Msg("certificate delivery failed")
	}
}

type certificateItem struct {
	ID        uint      `json:"id"`
	Code      string    `json:"codigo"`
	FileName  string    `json:"nombreArchivo"`
	MediaType string    `json:"tipoArchivo"`
	SizeBytes int64     `json:"tamanoArchivo"`
	IssuedAt  time.Time `json:"fechaGeneracion"`
}

// ListCertificates returns the certificates issued to the caller.
func (h *HTTPHandler) ListCertificates(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok || caller.UserID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Usuario no autenticado."})
		return
	}

	certs, err := h.Certificates.ListByApplicant(c.Request.Context(), caller.UserID)
	if err != nil {
		h.log.Error().Err(err).Uint("applicant_id", caller.UserID).Msg("list certificates failed")
		respondError(c, err, "Error al obtener certificados.")
		return
	}

	items := make([]certificateItem, 0, len(certs))
	for _, cert := range certs {
		items = append(items, certificateItem{
			ID:        cert.ID,
			Code:      cert.Code,
			FileName:  cert.FileName,
			MediaType: cert.MediaType,
			SizeBytes: cert.SizeBytes,
			IssuedAt:  cert.IssuedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "certificados": items})
}

func (h *HTTPHandler) VerifyByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("codigo"))

	res, err := h.Resolver.ResolveCode(c.Request.Context(), code, c.ClientIP())
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"message": domain.MessageOf(err, "Certificado no encontrado."),
				"codigo":  code,
			})
			return
		}
		h.log.Error().Err(err).Str("code", code).Msg("verification by code failed")
		respondError(c, err, "Error del servidor al verificar certificado.")
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyPayload checks a scanned QR payload. The body is passed through as
// received so it can be stored verbatim.
func (h *HTTPHandler) VerifyPayload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn().Str("client_ip", c.ClientIP()).Int64("limit", tooLarge.Limit).Msg("verification payload too large")
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": domain.ErrInvalidPayload.Error()})
		return
	}

	res, err := h.Resolver.ResolvePayload(c.Request.Context(), raw, c.ClientIP())
	if err != nil {
		respondError(c, err, "Error del servidor al verificar certificado.")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListVerifications lists ledger entries. fechaInicio and fechaFin accept
// RFC3339 or YYYY-MM-DD; a date-only fechaFin covers the whole day.
func (h *HTTPHandler) ListVerifications(c *gin.Context) {
	var (
		filter domain.LedgerFilter
		err    error
	)
	if filter.From, err = parseBound(c.Query("fechaInicio"), h.loc, false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "fechaInicio no es una fecha válida."})
		return
	}
	if filter.To, err = parseBound(c.Query("fechaFin"), h.loc, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "fechaFin no es una fecha válida."})
		return
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "limit no es válido."})
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "offset no es válido."})
		return
	}

	entries, err := h.Ledger.List(c.Request.Context(), filter)
	if err != nil {
		if domain.KindOf(err) != domain.KindInvalidInput {
			h.log.Error().Err(err).Msg("list verifications failed")
		}
		respondError(c, err, "Error al obtener verificaciones.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":          len(entries),
		"verificaciones": entries,
		"fechaConsulta":  h.now().UTC(),
	})
}

func (h *HTTPHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {message, error}. error carries the low-level cause
// when there is one.
func respondError(c *gin.Context, err error, fallback string) {
	body := gin.H{"message": domain.MessageOf(err, fallback)}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			body["error"] = appErr.Cause.Error()
		}
	} else {
		body["error"] = err.Error()
	}
	c.JSON(statusFor(domain.KindOf(err)), body)
}

func parseBound(v string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	t = t.UTC()
	return &t, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
