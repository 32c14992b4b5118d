package query

import (
	"context"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// mockHTTPClient は httpkit.ClientInterface のテスト用モックなのだ。
type mockHTTPClient struct {
	httpkit.ClientInterface
	fetchJSONFunc func(ctx context.Context, url string, v any) error
	postFunc      func(ctx context.Context, url string, data any) ([]byte, error)

	lastURL  string
	lastData any
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	m.lastURL = url
	if m.fetchJSONFunc != nil {
		return m.fetchJSONFunc(ctx, url, v)
	}
	return nil
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	m.lastURL = url
	m.lastData = data
	if m.postFunc != nil {
		return m.postFunc(ctx, url, data)
	}
	return []byte("{}"), nil
}
