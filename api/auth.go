package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/api/idtoken"

	"groups/config"
)

type auth struct {
	cfg      config.AuthConfig
	validate TokenValidator
}

func newAuth(cfg config.AuthConfig, validate TokenValidator) *auth {
	if validate == nil {
		validate = validateGoogleToken
	}
	return &auth{cfg: cfg, validate: validate}
}

func validateGoogleToken(ctx context.Context, credential, audience string) (string, map[string]any, error) {
	payload, err := idtoken.Validate(ctx, credential, audience)
	if err != nil {
		return "", nil, err
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return "", nil, errors.New("token has no email claim")
	}
	return email, payload.Claims, nil
}

// sign returns a bearer token of the form base64(email).base64(hmac).
func (a *auth) sign(email string) string {
	h := hmac.New(sha256.New, []byte(a.cfg.ClientSecret))
	h.Write([]byte(email))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(email)) + "." + sig
}

func (a *auth) authorize(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	emailBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	email := string(emailBytes)
	if !hmac.Equal([]byte(a.sign(email)), []byte(token)) {
		return "", false
	}
	return email, true
}

func (a *auth) isAdmin(email string) bool {
	return slices.ContainsFunc(a.cfg.Admins, func(admin string) bool {
		return strings.EqualFold(strings.TrimSpace(admin), email)
	})
}

// requireAdmin writes 401 or 403 and reports false unless the request
// carries an admin token. With auth disabled every request passes.
func (a *auth) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !a.cfg.Enabled() {
		return "", true
	}
	email, ok := a.authorize(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if !a.isAdmin(email) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return email, true
}

func (s *server) handleGoogleCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.cfg.Enabled() {
			http.Error(w, "sign-in is not configured", http.StatusNotFound)
			return
		}
		credential := r.FormValue("credential")
		if credential == "" {
			http.Error(w, "missing credential", http.StatusBadRequest)
			return
		}

		email, claims, err := s.auth.validate(r.Context(), credential, s.auth.cfg.ClientID)
		if err != nil {
			s.logger.Warn("failed to validate token", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"email":   email,
			"name":    claims["name"],
			"picture": claims["picture"],
			"admin":   s.auth.isAdmin(email),
			"token":   s.auth.sign(email),
		})
	}
}

func (s *server) handleAdminCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.cfg.Enabled() {
			writeJSON(w, http.StatusOK, map[string]bool{"admin": true})
			return
		}
		email, ok := s.auth.authorize(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"admin": s.auth.isAdmin(email)})
	}
}
