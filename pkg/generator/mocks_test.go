package generator

import (
	"context"
	"sync"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// --- Mocks ---

// mockHTTPClient は httpkit.ClientInterface のテスト用モックなのだ。
// 使わないメソッドは埋め込んだインターフェースに任せるのだ。
type mockHTTPClient struct {
	httpkit.ClientInterface
	postFunc func(ctx context.Context, url string, data any) ([]byte, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()
	if m.postFunc != nil {
		return m.postFunc(ctx, url, data)
	}
	return []byte(`{"images":[]}`), nil
}

func (m *mockHTTPClient) calledURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockBuilder は PayloadBuilder のテスト用モックなのだ。
type mockBuilder struct {
	buildFunc func(mode domain.GenerationMode, params domain.GenerationParameters) (domain.Payload, error)
}

func (m *mockBuilder) Build(ctx context.Context, mode domain.GenerationMode, params domain.GenerationParameters, source, mask *domain.ImageSource) (domain.Payload, error) {
	if m.buildFunc != nil {
		return m.buildFunc(mode, params)
	}
	return domain.Payload{"prompt": params.Prompt}, nil
}
