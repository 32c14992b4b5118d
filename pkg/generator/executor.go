package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/endpoint"
	"github.com/shouni/sdwebui-image-kit/pkg/imgutil"
)

// Executor は生成リクエストを非同期に実行し、Handle で結果を返します。
type Executor struct {
	builder    PayloadBuilder
	registry   *endpoint.Registry
	httpClient httpkit.ClientInterface
	listener   Listener
}

// ExecutorOption は Executor の任意設定です。
type ExecutorOption func(*Executor)

// WithListener は Handle 完了ごとに呼ばれる Listener を設定します。
func WithListener(l Listener) ExecutorOption {
	return func(e *Executor) {
		e.listener = l
	}
}

// NewExecutor は依存関係を注入して Executor を初期化します。
func NewExecutor(builder PayloadBuilder, registry *endpoint.Registry, httpClient httpkit.ClientInterface, opts ...ExecutorOption) (*Executor, error) {
	if builder == nil {
		return nil, fmt.Errorf("builder is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}

	e := &Executor{
		builder:    builder,
		registry:   registry,
		httpClient: httpClient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Submit はリクエストボディを同期的に組み立て、送信を別 goroutine で開始します。
// 組み立てに失敗した場合はエラーを返し、goroutine は起動しません。
// ctx は送信にも使われるため、キャンセルすると Handle は NetworkError で完了します。
func (e *Executor) Submit(ctx context.Context, req Request) (*Handle, error) {
	payload, err := e.builder.Build(ctx, req.Mode, req.Params, req.Source, req.Mask)
	if err != nil {
		return nil, fmt.Errorf("%s リクエストの作成に失敗しました: %w", req.Mode, err)
	}

	h := newHandle(uuid.NewString(), req.Mode)
	url := e.registry.ForMode(req.Mode)

	slog.InfoContext(ctx, "生成リクエストを送信します",
		"id", h.ID(),
		"mode", req.Mode.String(),
		"steps", req.Params.Steps,
		"batch_size", req.Params.BatchSize,
		"model", req.Params.ModelName,
	)

	go e.run(ctx, h, url, payload)
	return h, nil
}

func (e *Executor) run(ctx context.Context, h *Handle, url string, payload domain.Payload) {
	result, err := e.execute(ctx, url, payload)
	if err != nil {
		slog.WarnContext(ctx, "生成に失敗しました", "id", h.ID(), "mode", h.Mode().String(), "error", err)
	} else {
		slog.InfoContext(ctx, "生成が完了しました", "id", h.ID(), "mode", h.Mode().String(), "images", len(result.Images))
	}

	if !h.complete(result, err) {
		return
	}
	if e.listener != nil {
		e.listener(Event{HandleID: h.ID(), Mode: h.Mode(), Result: h.result, Err: h.err})
	}
}

func (e *Executor) execute(ctx context.Context, url string, payload domain.Payload) (*domain.GenerationResult, error) {
	body, err := e.httpClient.PostJSONAndFetchBytes(ctx, url, payload)
	if err != nil {
		return nil, domain.WrapTransportError(fmt.Sprintf("POST %s", url), err)
	}
	return parseGenerationResponse(body)
}

// parseGenerationResponse はレスポンスの画像をすべてデコードします。
// 1 枚でも失敗したら部分的な結果は返しません。
func parseGenerationResponse(body []byte) (*domain.GenerationResult, error) {
	var resp generationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewDecodeError("malformed generation response", err)
	}

	result := &domain.GenerationResult{Images: make([]image.Image, 0, len(resp.Images)), Info: resp.infoText()}
	for i, encoded := range resp.Images {
		img, err := imgutil.DecodeBase64ToImage(encoded)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		result.Images = append(result.Images, img)
	}
	return result, nil
}

// Interrupt は Web UI に中断を依頼します。ローカルの Handle には触れません。
func (e *Executor) Interrupt(ctx context.Context) (bool, error) {
	url := e.registry.URL(endpoint.Interrupt)
	if _, err := e.httpClient.PostJSONAndFetchBytes(ctx, url, map[string]any{}); err != nil {
		return false, domain.WrapTransportError("interrupt", err)
	}
	slog.InfoContext(ctx, "中断を依頼しました")
	return true, nil
}
