package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"swapshelf/internal/app"
	"swapshelf/internal/ratelimit"
	"swapshelf/internal/session"
	"swapshelf/internal/util"
	"swapshelf/pkg/domain"
	"swapshelf/pkg/moderation"
	"swapshelf/pkg/query"
	"swapshelf/pkg/storage"
)

const defaultMaxImageBytes = 5 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App               *app.App
	Sessions          *session.Manager
	AdminUsername     string
	AdminPasswordHash string
	LoginLimiter      *ratelimit.FixedWindowLimiter
	TrustedProxies    *util.TrustedProxies
	MaxImageBytes     int64
}

// Server exposes the listing exchange over HTTP.
type Server struct {
	app               *app.App
	sessions          *session.Manager
	adminUsername     string
	adminPasswordHash string
	loginLimiter      *ratelimit.FixedWindowLimiter
	trusted           *util.TrustedProxies
	maxImageBytes     int64
	mux               *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:               cfg.App,
		sessions:          cfg.Sessions,
		adminUsername:     cfg.AdminUsername,
		adminPasswordHash: cfg.AdminPasswordHash,
		loginLimiter:      cfg.LoginLimiter,
		trusted:           cfg.TrustedProxies,
		maxImageBytes:     cfg.MaxImageBytes,
		mux:               http.NewServeMux(),
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = defaultMaxImageBytes
	}
	s.routes()
	return s
}

// Router returns the configured handler with the shared middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// public catalog
	s.mux.HandleFunc("/api/listings", s.handleListings)
	s.mux.HandleFunc("/api/listings/", s.handleListingByID)
	s.mux.HandleFunc("/api/featured-listings", s.handleFeatured)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/isbn/", s.handleISBN)

	// admin
	s.mux.HandleFunc("/api/admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("/api/admin/logout", s.handleAdminLogout)
	s.mux.Handle("/api/admin/status", s.adminOnly(s.handleAdminStatus))
	s.mux.Handle("/api/admin/stats", s.adminOnly(s.handleAdminStats))
	s.mux.Handle("/api/admin/listings", s.adminOnly(s.handleAdminListings))
	s.mux.Handle("/api/admin/listings/", s.adminOnly(s.handleAdminListingByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// public handlers

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleBrowse(w, r)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r, query.AudiencePublic)
	if !ok {
		return
	}
	result, err := s.app.Query.Query(query.AudiencePublic, filters, parsePage(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	result.Items = s.presentAll(r, result.Items)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	var uploads []*multipart.FileHeader

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxImageBytes*6)
		if err := r.ParseMultipartForm(s.maxImageBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		draft = domain.Draft{
			Type:          r.FormValue("type"),
			Title:         r.FormValue("title"),
			AuthorSubject: r.FormValue("author_subject"),
			Description:   r.FormValue("description"),
			Condition:     r.FormValue("condition"),
			Location:      r.FormValue("location"),
			OwnerEmail:    r.FormValue("owner_email"),
			Tags:          splitTags(r.FormValue("tags")),
		}
		if r.MultipartForm != nil {
			uploads = r.MultipartForm.File["images"]
		}
	} else {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		// Image uploads only arrive via multipart; JSON submissions carry none.
		draft.Images = nil
	}

	keys, err := s.storeUploads(r, uploads)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	draft.Images = keys

	listing, verdict, err := s.app.Moderation.Submit(draft)
	if err != nil {
		s.app.CleanupImages(r.Context(), keys)
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Listing: s.present(r, listing),
		Verdict: verdict,
	})
}

// storeUploads pushes the submitted files to object storage and returns
// their keys. Count and per-file size are bounded here; the facade re-checks
// the count against the draft.
func (s *Server) storeUploads(r *http.Request, uploads []*multipart.FileHeader) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if len(uploads) > 5 {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "images", Msg: "max 5 images"},
		}}
	}
	if s.app.Images == nil {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "images", Msg: "image uploads are not enabled"},
		}}
	}
	uploadID := util.NewID()
	keys := make([]string, 0, len(uploads))
	for i, header := range uploads {
		if header.Size > s.maxImageBytes {
			s.app.CleanupImages(r.Context(), keys)
			return nil, &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "images", Msg: "image exceeds the size limit"},
			}}
		}
		file, err := header.Open()
		if err != nil {
			s.app.CleanupImages(r.Context(), keys)
			return nil, err
		}
		key := storage.ImageKey(uploadID, header.Filename, i)
		err = s.app.Images.Put(r.Context(), key, file, header.Size, header.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			s.app.CleanupImages(r.Context(), keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitListingPath(r.URL.Path, "/api/listings/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleListingDetail(w, r, id)
	case "contact":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleContact(w, r, id)
	case "withdraw":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleOwnerWithdraw(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleListingDetail(w http.ResponseWriter, r *http.Request, id string) {
	listing, found, err := s.app.Store.FindByID(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	// Unpublished listings stay invisible to the public surface.
	if !found || listing.Status != domain.StatusPublished {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if err := s.app.Store.IncrementViews(id); err != nil {
		slog.Warn("view count update failed", "listing_id", id, "err", err)
	} else {
		listing.Views++
	}
	writeJSON(w, http.StatusOK, s.present(r, listing))
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request, id string) {
	var req contactRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "name, email and message are required")
		return
	}
	if err := s.app.ContactOwner(r.Context(), id, req.Name, req.Email, req.Message); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOwnerWithdraw(w http.ResponseWriter, r *http.Request, id string) {
	var req withdrawRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.OwnerEmail) == "" {
		writeError(w, http.StatusBadRequest, "owner_email is required")
		return
	}
	listing, err := s.app.Moderation.Act(id, moderation.EventWithdraw, domain.Actor{Email: req.OwnerEmail})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.present(r, listing))
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.Query.Featured()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.presentAll(r, items),
		"count": len(items),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Query.PublicStats()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleISBN(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	isbn := strings.TrimPrefix(r.URL.Path, "/api/isbn/")
	isbn = strings.ReplaceAll(isbn, "-", "")
	if isbn == "" || strings.Contains(isbn, "/") {
		http.NotFound(w, r)
		return
	}
	meta, found, err := s.app.Metadata.Lookup(r.Context(), isbn)
	if err != nil {
		writeError(w, http.StatusBadGateway, "metadata lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no metadata for this ISBN")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// presentation

func (s *Server) present(r *http.Request, listing domain.Listing) domain.Listing {
	listing.Images = s.app.ImageURLs(r.Context(), listing)
	return listing
}

func (s *Server) presentAll(r *http.Request, items []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, 0, len(items))
	for _, l := range items {
		out = append(out, s.present(r, l))
	}
	return out
}

// request parsing

func parseFilters(w http.ResponseWriter, r *http.Request, audience query.Audience) (query.Filters, bool) {
	q := r.URL.Query()
	filters := query.Filters{
		Search:   strings.TrimSpace(q.Get("search")),
		Location: strings.TrimSpace(q.Get("location")),
	}
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		parsed, ok := domain.ParseListingType(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid type filter")
			return query.Filters{}, false
		}
		filters.Type = parsed
	}
	if raw := strings.TrimSpace(q.Get("condition")); raw != "" {
		parsed, ok := domain.ParseCondition(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid condition filter")
			return query.Filters{}, false
		}
		filters.Condition = parsed
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" && audience == query.AudienceAdmin {
		parsed, ok := domain.ParseListingStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return query.Filters{}, false
		}
		filters.Status = parsed
	}
	return filters, true
}

func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// splitListingPath extracts the id and optional trailing action from a
// listing path.
func splitListingPath(rawPath, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(rawPath, prefix)
	if rest == "" || rest == rawPath {
		return "", "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	parts := strings.SplitN(rest, "/", 3)
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}

// error mapping

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "listing not found")
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "listing was modified concurrently")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		slog.Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"request_id", util.RequestIDFromRequest(r),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type submitResponse struct {
	Listing domain.Listing `json:"listing"`
	Verdict domain.Verdict `json:"verdict"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type withdrawRequest struct {
	OwnerEmail string `json:"owner_email"`
}
