package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/endpoint"
)

// progressRequest は進捗取得時に送る固定のボディです。
var progressRequest = map[string]string{
	"skip_current_image": "false",
	"skip_current_text":  "true",
}

// progressResponse は /internal/progress のレスポンスです。
// 古い Web UI は eta_relative、新しいものは eta を返すのだ。
type progressResponse struct {
	Progress    *float64 `json:"progress"`
	ETARelative *float64 `json:"eta_relative"`
	ETA         *float64 `json:"eta"`
	Active      bool     `json:"active"`
	Queued      bool     `json:"queued"`
	Completed   bool     `json:"completed"`
	TextInfo    string   `json:"textinfo"`
}

// Service はモデル一覧や進捗など、生成以外の問い合わせを担当します。
type Service struct {
	registry   *endpoint.Registry
	httpClient httpkit.ClientInterface
}

// NewService は依存関係を注入して Service を初期化します。
func NewService(registry *endpoint.Registry, httpClient httpkit.ClientInterface) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	return &Service{registry: registry, httpClient: httpClient}, nil
}

// ListModels は Web UI に登録されているチェックポイントの一覧を返します。
func (s *Service) ListModels(ctx context.Context) ([]domain.Model, error) {
	var models []domain.Model
	if err := s.httpClient.FetchAndDecodeJSON(ctx, s.registry.URL(endpoint.Models), &models); err != nil {
		return nil, domain.WrapTransportError("list models", err)
	}
	slog.DebugContext(ctx, "モデル一覧を取得しました", "count", len(models))
	return models, nil
}

// GetProgress は実行中の生成の進捗を返します。
func (s *Service) GetProgress(ctx context.Context) (*domain.Progress, error) {
	body, err := s.httpClient.PostJSONAndFetchBytes(ctx, s.registry.URL(endpoint.Progress), progressRequest)
	if err != nil {
		return nil, domain.WrapTransportError("get progress", err)
	}

	var resp progressResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewDecodeError("malformed progress response", err)
	}

	p := &domain.Progress{
		Active:    resp.Active,
		Queued:    resp.Queued,
		Completed: resp.Completed,
		TextInfo:  resp.TextInfo,
	}
	if resp.Progress != nil {
		p.Progress = domain.ClampProgress(*resp.Progress)
	}
	switch {
	case resp.ETARelative != nil:
		p.ETARelative = *resp.ETARelative
	case resp.ETA != nil:
		p.ETARelative = *resp.ETA
	}
	return p, nil
}

// SetModel は Web UI の既定チェックポイントを切り替えます。
func (s *Service) SetModel(ctx context.Context, name string) error {
	if name == "" {
		return domain.NewValidationError("model name is required")
	}

	options := map[string]any{
		"sd_model_checkpoint":         name,
		"show_progress_every_n_steps": 1,
	}
	if _, err := s.httpClient.PostJSONAndFetchBytes(ctx, s.registry.URL(endpoint.Options), options); err != nil {
		return domain.WrapTransportError(fmt.Sprintf("set model %q", name), err)
	}
	slog.InfoContext(ctx, "モデルを切り替えました", "model", name)
	return nil
}

// ModelNames は一覧からモデル名 (model_name) を取り出します。
func ModelNames(models []domain.Model) []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.ModelName)
	}
	return names
}
