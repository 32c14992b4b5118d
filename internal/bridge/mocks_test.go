package bridge

import (
	"context"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/generator"
)

// mockGenerator は generator.Generator のテスト用モックなのだ。
type mockGenerator struct {
	submitFunc    func(ctx context.Context, req generator.Request) (*generator.Handle, error)
	interruptFunc func(ctx context.Context) (bool, error)
	lastRequest   generator.Request
}

func (m *mockGenerator) Submit(ctx context.Context, req generator.Request) (*generator.Handle, error) {
	m.lastRequest = req
	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return nil, domain.NewValidationError("submit not configured")
}

func (m *mockGenerator) Interrupt(ctx context.Context) (bool, error) {
	if m.interruptFunc != nil {
		return m.interruptFunc(ctx)
	}
	return true, nil
}

// mockQuery は QueryService のテスト用モックなのだ。
type mockQuery struct {
	models    []domain.Model
	progress  *domain.Progress
	err       error
	lastModel string
}

func (m *mockQuery) ListModels(ctx context.Context) ([]domain.Model, error) {
	return m.models, m.err
}

func (m *mockQuery) GetProgress(ctx context.Context) (*domain.Progress, error) {
	return m.progress, m.err
}

func (m *mockQuery) SetModel(ctx context.Context, name string) error {
	m.lastModel = name
	if name == "" {
		return domain.NewValidationError("model name is required")
	}
	return m.err
}

// mockHTTPClient は Executor を本物のまま使うための httpkit.ClientInterface のモックなのだ。
type mockHTTPClient struct {
	httpkit.ClientInterface
	postFunc func(ctx context.Context, url string, data any) ([]byte, error)
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	if m.postFunc != nil {
		return m.postFunc(ctx, url, data)
	}
	return []byte(`{"images":[]}`), nil
}
