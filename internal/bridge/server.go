package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/generator"
	"github.com/shouni/sdwebui-image-kit/pkg/imgutil"
)

// ジョブの状態です。
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const maxRequestBytes = 64 << 20

// DefaultJobRetention は完了したジョブを保持する時間です。
const DefaultJobRetention = 30 * time.Minute

// QueryService はモデル一覧や進捗の問い合わせ先です。
type QueryService interface {
	ListModels(ctx context.Context) ([]domain.Model, error)
	GetProgress(ctx context.Context) (*domain.Progress, error)
	SetModel(ctx context.Context, name string) error
}

// GenerateRequest は POST /api/generate のボディです。
// 画像は base64 (Source / Mask) かパス (SourcePath / MaskPath) で渡します。
type GenerateRequest struct {
	Mode       domain.GenerationMode       `json:"mode"`
	Preset     string                      `json:"preset,omitempty"`
	Params     domain.GenerationParameters `json:"params"`
	Source     string                      `json:"source,omitempty"`
	SourcePath string                      `json:"source_path,omitempty"`
	Mask       string                      `json:"mask,omitempty"`
	MaskPath   string                      `json:"mask_path,omitempty"`
}

// JobResponse は GET /api/jobs/{id} のレスポンスです。
type JobResponse struct {
	ID     string     `json:"id"`
	Mode   string     `json:"mode"`
	Status string     `json:"status"`
	Images []string   `json:"images,omitempty"`
	Info   string     `json:"info,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

// Server はフロントエンドから生成を操作するためのローカル HTTP サーバーです。
type Server struct {
	baseCtx context.Context
	gen     generator.Generator
	query   QueryService
	hub     *Hub
	router  *mux.Router

	allowedOrigins map[string]struct{}
	retention      time.Duration
	now            func() time.Time

	mu   sync.RWMutex
	jobs map[string]*generator.Handle
}

// ServerOption は Server の任意設定です。
type ServerOption func(*Server)

// WithAllowedOrigins はループバック以外に許可するブラウザの Origin を追加します。
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		for _, o := range origins {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				s.allowedOrigins[o] = struct{}{}
			}
		}
	}
}

// WithJobRetention は完了したジョブを保持する時間を設定します。
func WithJobRetention(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewServer は依存関係を注入して Server を初期化します。
// baseCtx は送信した生成の実行に使われ、HTTP リクエストが終わっても生成は続きます。
func NewServer(baseCtx context.Context, gen generator.Generator, query QueryService, hub *Hub, opts ...ServerOption) (*Server, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if query == nil {
		return nil, fmt.Errorf("query service is required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub is required")
	}

	s := &Server{
		baseCtx: baseCtx,
		gen:     gen,
		query:   query,
		hub:     hub,
		jobs:    make(map[string]*generator.Handle),

		allowedOrigins: make(map[string]struct{}),
		retention:      DefaultJobRetention,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.enableCORS)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/jobs/{id}", s.handleJob).Methods(http.MethodGet)
	api.HandleFunc("/interrupt", s.handleInterrupt).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)
	api.HandleFunc("/progress", s.handleProgress).Methods(http.MethodGet)
	api.HandleFunc("/options", s.handleOptions).Methods(http.MethodPost, http.MethodOptions)
	return r
}

// Handler はルーティング済みの http.Handler を返します。
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe は ctx が終わるまでサーバーを動かし、終了時はグレースフルに停止します。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "ブリッジサーバーを起動します", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.InfoContext(ctx, "ブリッジサーバーを停止します")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.Count(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req := GenerateRequest{Params: domain.DefaultParameters()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	genReq, err := req.toGeneratorRequest()
	if err != nil {
		writeError(w, err)
		return
	}

	// 完了通知より先に登録されるよう、Submit から登録までロックを持つ
	s.mu.Lock()
	h, err := s.gen.Submit(s.baseCtx, genReq)
	if err == nil {
		s.pruneLocked()
		s.jobs[h.ID()] = h
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": h.ID(), "mode": h.Mode().String()})
}

// toGeneratorRequest はプリセットを適用し、画像入力を ImageSource に変換します。
func (req GenerateRequest) toGeneratorRequest() (generator.Request, error) {
	preset, err := domain.ParsePreset(req.Preset)
	if err != nil {
		return generator.Request{}, err
	}
	mode, params := preset.Apply(req.Mode, req.Params)

	source, err := toImageSource(req.Source, req.SourcePath)
	if err != nil {
		return generator.Request{}, fmt.Errorf("source: %w", err)
	}
	mask, err := toImageSource(req.Mask, req.MaskPath)
	if err != nil {
		return generator.Request{}, fmt.Errorf("mask: %w", err)
	}
	return generator.Request{Mode: mode, Params: params, Source: source, Mask: mask}, nil
}

func toImageSource(encoded, path string) (*domain.ImageSource, error) {
	switch {
	case encoded != "":
		img, err := imgutil.DecodeBase64ToImage(encoded)
		if err != nil {
			return nil, domain.NewError(domain.KindValidation, "image is not a decodable base64 image", err)
		}
		return domain.SourceFromImage(img), nil
	case path != "":
		return domain.SourceFromPath(path), nil
	default:
		return nil, nil
	}
}

// pruneLocked は保持期間を過ぎた完了済みジョブを捨てます。s.mu を持って呼ぶこと。
func (s *Server) pruneLocked() {
	cutoff := s.now().Add(-s.retention)
	for id, h := range s.jobs {
		if done := h.CompletedAt(); !done.IsZero() && done.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

// JobCount は保持しているジョブの数を返します。
func (s *Server) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.originAllowed(r.Header.Get("Origin")) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	s.hub.serveWS(w, r)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	h, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}

	resp := JobResponse{ID: h.ID(), Mode: h.Mode().String()}
	result, err := h.Result()
	switch {
	case errors.Is(err, generator.ErrPending):
		resp.Status = StatusRunning
	case err != nil:
		resp.Status = StatusFailed
		resp.Error = newErrorBody(err)
	default:
		resp.Status = StatusCompleted
		resp.Info = result.Info
		resp.Images = make([]string, 0, len(result.Images))
		for _, img := range result.Images {
			encoded, err := imgutil.EncodeImageToBase64(img)
			if err != nil {
				writeError(w, err)
				return
			}
			resp.Images = append(resp.Images, encoded)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	ok, err := s.gen.Interrupt(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"interrupted": ok})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.query.ListModels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.query.GetProgress(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model string `json:"sd_model_checkpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, domain.NewValidationError(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if err := s.query.SetModel(r.Context(), body.Model); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sd_model_checkpoint": body.Model})
}

// originAllowed は Origin がループバックか許可リストにある場合に true を返します。
// Origin のない (ブラウザ以外からの) リクエストは許可します。
func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if _, ok := s.allowedOrigins[strings.TrimRight(origin, "/")]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// enableCORS は許可された Origin のフロントエンドにだけヘッダーを付けます。
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !s.originAllowed(origin) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor はエラーの分類から HTTP ステータスを決めます。
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNetwork, domain.KindService, domain.KindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]*errorBody{"error": newErrorBody(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("レスポンスの書き込みに失敗しました", "error", err)
	}
}
