package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/BKarthik7/glimpse/internal/auth"
	"github.com/BKarthik7/glimpse/internal/config"
	"github.com/BKarthik7/glimpse/internal/crypto"
	"github.com/BKarthik7/glimpse/internal/model"
	"github.com/BKarthik7/glimpse/internal/repository"
)

// Compared against when a login hits an unknown email, so both failure paths
// do one bcrypt comparison and stay indistinguishable by timing.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Server struct {
	cfg   config.Config
	store *repository.Store
	redis *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		redis: redisClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.With(s.authMiddleware).Post("/logout", s.handleLogout)

	r.With(s.authMiddleware).Post("/submissions", s.handleCreateSubmission)
	r.Get("/submissions", s.handleListSubmissions)
	r.With(s.authMiddleware).Get("/submissions/my", s.handleListMySubmissions)

	return r
}

// Auth

type claimsKey struct{}

// authMiddleware rejects a missing or non-bearer header with 401 without
// touching the verifier; a present but unverifiable token gets 403.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusForbidden, "invalid_token")
			return
		}

		revoked, err := s.isTokenRevoked(r.Context(), claims.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if revoked {
			writeError(w, http.StatusForbidden, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// Registration and login

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email_taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	// Registration does not log the user in; a token requires /login.
	writeJSON(w, http.StatusCreated, map[string]string{"message": "user registered"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = crypto.CheckPassword(dummyPasswordHash, req.Password)
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	if err := s.revokeToken(r.Context(), claims); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Submissions

type createSubmissionRequest struct {
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	Company   string   `json:"company"`
	Questions []string `json:"questions"`
}

type submissionResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	Company   string   `json:"company"`
	Questions []string `json:"questions"`
	OwnerID   string   `json:"ownerId"`
	OwnerName string   `json:"ownerName,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

type listSubmissionsResponse struct {
	Total       int64                `json:"total"`
	Submissions []submissionResponse `json:"submissions"`
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req createSubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if errCode := validateSubmission(&req); errCode != "" {
		writeError(w, http.StatusBadRequest, errCode)
		return
	}

	owner, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	submission := model.Submission{
		ID:        uuid.NewString(),
		OwnerID:   claims.UserID,
		Name:      req.Name,
		Country:   req.Country,
		Company:   req.Company,
		Questions: req.Questions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSubmission(r.Context(), submission); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapSubmission(model.SubmissionWithOwner{
		Submission: submission,
		OwnerName:  owner.Name,
	}))
}

// validateSubmission trims fields in place and returns an error code, or ""
// when the payload is complete.
func validateSubmission(req *createSubmissionRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	req.Country = strings.TrimSpace(req.Country)
	req.Company = strings.TrimSpace(req.Company)
	if req.Name == "" || req.Country == "" || req.Company == "" {
		return "missing_fields"
	}
	if len(req.Questions) == 0 {
		return "missing_questions"
	}
	for i, question := range req.Questions {
		question = strings.TrimSpace(question)
		if question == "" {
			return "empty_question"
		}
		req.Questions[i] = question
	}
	return ""
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	total, err := s.store.CountSubmissions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	submissions, err := s.store.ListSubmissions(r.Context(), limit, listOffset(page, limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := listSubmissionsResponse{
		Total:       total,
		Submissions: make([]submissionResponse, 0, len(submissions)),
	}
	for _, submission := range submissions {
		resp.Submissions = append(resp.Submissions, mapSubmission(submission))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMySubmissions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	submissions, err := s.store.ListSubmissionsByOwner(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]submissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		resp = append(resp, mapSubmission(submission))
	}
	writeJSON(w, http.StatusOK, resp)
}

// pageParams falls back to page=1, limit=10 on absent, non-numeric or
// non-positive input; bad pagination never produces a validation error.
func pageParams(r *http.Request) (int, int) {
	page, limit := 1, 10
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return page, limit
}

// listOffset guards against an oversized page value overflowing into a
// negative OFFSET; lenient pagination must not become a query error.
func listOffset(page, limit int) int {
	offset := (page - 1) * limit
	if offset < 0 {
		return 0
	}
	return offset
}

func mapSubmission(submission model.SubmissionWithOwner) submissionResponse {
	return submissionResponse{
		ID:        submission.ID,
		Name:      submission.Name,
		Country:   submission.Country,
		Company:   submission.Company,
		Questions: submission.Questions,
		OwnerID:   submission.OwnerID,
		OwnerName: submission.OwnerName,
		CreatedAt: submission.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: submission.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Token revocation

func revokedTokenKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

// revokeToken denylists the token id for its remaining life. Without Redis
// configured, logout is accepted but the token stays valid until expiry.
func (s *Server) revokeToken(ctx context.Context, claims *auth.Claims) error {
	if s.redis == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedTokenKey(claims.ID), "1", ttl).Err()
}

func (s *Server) isTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.redis == nil || tokenID == "" {
		return false, nil
	}
	count, err := s.redis.Exists(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Helpers

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
