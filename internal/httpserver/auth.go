// internal/httpserver/auth.go
//
// Accounts and identity. Signup/login issue an HS256 JWT delivered as an
// HttpOnly cookie (or usable as a Bearer token). Auth is optional for
// gameplay: withOptionalAuth never rejects — a request without a valid
// token plays as a guest under a stable anonymous cookie id, so progress
// survives restarts either way.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type ctxUserKey struct{}

type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

const anonCookieName = "triclue_anon"

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func validateCredentials(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// ------------------------------ user table ---------------------------------

func (s *Server) createUser(username, pw string) (*authUser, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRow(`SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errors.New("username taken")
	}
	h, err := hashPassword(pw)
	if err != nil {
		return nil, err
	}
	u := &authUser{ID: uuid.NewString(), Username: username}
	_, err = s.db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, h, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Server) findUser(username string) (*authUser, string, error) {
	var u authUser
	var hash string
	err := s.db.QueryRow(`SELECT id, username, password_hash FROM users WHERE lower(username)=lower(?)`,
		username).Scan(&u.ID, &u.Username, &hash)
	if err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

// ------------------------------- tokens ------------------------------------

func jwtSecret() []byte {
	return []byte(getEnv("JWT_SECRET", "dev_secret_change_me"))
}

func signJWT(id, username string) (string, time.Time, error) {
	days := envInt("JWT_EXPIRES_DAYS", 14)
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := token.SignedString(jwtSecret())
	return ss, exp, err
}

func parseJWT(token string) (*authUser, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" {
		return nil, errors.New("missing id claim")
	}
	return &authUser{ID: id, Username: username}, nil
}

// ------------------------------- cookies -----------------------------------

func authCookie(token string, exp time.Time) *http.Cookie {
	secure := os.Getenv("APP_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     getEnv("COOKIE_NAME", "triclue_token"),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	}
}

func clearAuthCookie(w http.ResponseWriter) {
	c := authCookie("", time.Time{})
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "triclue_token")); err == nil {
		return c.Value
	}
	return ""
}

// ----------------------------- middleware ----------------------------------

// withOptionalAuth attaches the authenticated user to the context when a
// valid token is present, and otherwise lets the request through as a
// guest. It never returns 401.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerOrCookie(r); token != "" {
				if u, err := parseJWT(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth gates a route to authenticated users.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerOrCookie(r)
		if token == "" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		u, err := parseJWT(token)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u)))
	}
}

// playerID resolves the persistence namespace for this request: the
// authenticated user's id, or a stable anonymous id minted into a
// long-lived cookie on first contact.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if u, ok := r.Context().Value(ctxUserKey{}).(*authUser); ok {
		return u.ID
	}
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon-" + uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
	return id
}

// ------------------------------- routes ------------------------------------

func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)
	s.r.Get("/auth/me", s.requireAuth(s.handleMe))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.createUser(req.Username, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	token, exp, err := signJWT(u.ID, u.Username)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		http.Error(w, `{"error":"token_failed"}`, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, authCookie(token, exp))
	log.Info().Str("user", u.Username).Msg("signup")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "user": u, "token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	u, hash, err := s.findUser(strings.TrimSpace(req.Username))
	if err != nil || !checkPassword(hash, req.Password) {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Warn().Err(err).Msg("login lookup")
		}
		writeFailure(w, errors.New("invalid username or password"))
		return
	}
	token, exp, err := signJWT(u.ID, u.Username)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		http.Error(w, `{"error":"token_failed"}`, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, authCookie(token, exp))
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "user": u, "token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := r.Context().Value(ctxUserKey{}).(*authUser)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "user": u})
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
