package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"postulaciones/domain"
)

const maxCodeAttempts = 5

type codeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// CodeMinter hands out certificate codes. The first candidate is derived from
// the issuance instant; when it is already taken random codes in the same
// format are drawn. The unique index on the code column is the final guard.
type CodeMinter struct {
	store  codeChecker
	random func() (string, error)
	log    zerolog.Logger
}

func NewCodeMinter(store codeChecker, log zerolog.Logger) *CodeMinter {
	return &CodeMinter{
		store:  store,
		random: domain.RandomCode,
		log:    log.With().Str("component", "code_minter").Logger(),
	}
}

func (m *CodeMinter) Mint(ctx context.Context, now time.Time) string {
	code := domain.GenerateCode(now)
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		taken, err := m.store.CodeExists(ctx, code)
		if err != nil {
			m.log.Warn().Err(err).Str("code", code).Msg("code availability check failed, using candidate")
			return code
		}
		if !taken {
			return code
		}
		m.log.Info().Str("code", code).Int("attempt", attempt).Msg("code already issued, drawing another")
		next, err := m.random()
		if err != nil {
			m.log.Warn().Err(err).Msg("random code source failed")
			return code
		}
		code = next
	}
	return code
}
