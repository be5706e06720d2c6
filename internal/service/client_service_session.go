package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type sessionSource struct {
	configured  string
	accessToken string
	prefs       store.PreferenceStore
	logger      *logger.Logger
}

// NewSessionSource resolves the session identity in this order: the
// configured id, the [models.PrefSessionUserID] preference, the subject of
// the access token (configured or stored under [models.PrefAccessToken]).
// A subject taken from a token is remembered in preferences so that
// offline starts keep the same identity.
func NewSessionSource(configured, accessToken string, prefs store.PreferenceStore, log *logger.Logger) SessionSource {
	return &sessionSource{
		configured:  strings.TrimSpace(configured),
		accessToken: strings.TrimSpace(accessToken),
		prefs:       prefs,
		logger:      log,
	}
}

func (s *sessionSource) SessionID(ctx context.Context) (string, error) {
	if s.configured != "" {
		return s.configured, nil
	}

	if id := s.preference(ctx, models.PrefSessionUserID); id != "" {
		return id, nil
	}

	token := s.accessToken
	if token == "" {
		token = s.preference(ctx, models.PrefAccessToken)
	}
	if token == "" {
		return "", ErrNoSession
	}

	// tokens pasted from a request header keep their scheme
	if strings.Contains(token, " ") {
		var err error
		if token, err = utils.ParseBearerToken(token); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoSession, err)
		}
	}

	subject, err := utils.SubjectFromJWT(token)
	if err != nil {
		s.logger.Warn().Err(err).Str("func", "sessionSource.SessionID").Msg("access token carries no usable subject")
		return "", fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	if s.prefs != nil {
		if err = s.prefs.Set(ctx, models.PrefSessionUserID, subject); err != nil {
			s.logger.Warn().Err(err).Str("func", "sessionSource.SessionID").Msg("failed to remember session id")
		}
	}

	return subject, nil
}

// preference reads a trimmed preference value. A read failure is logged
// and treated as unset.
func (s *sessionSource) preference(ctx context.Context, key string) string {
	if s.prefs == nil {
		return ""
	}

	value, _, err := s.prefs.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("func", "sessionSource.SessionID").Str("key", key).Msg("failed to read preference")
		return ""
	}
	return strings.TrimSpace(value)
}
