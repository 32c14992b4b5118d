package payload

import (
	"context"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// mockEncoder は ImageEncoder のテスト用モックなのだ。
type mockEncoder struct {
	encodeFunc func(ctx context.Context, src *domain.ImageSource) (string, error)
	calls      int
}

func (m *mockEncoder) EncodeSource(ctx context.Context, src *domain.ImageSource) (string, error) {
	m.calls++
	if m.encodeFunc != nil {
		return m.encodeFunc(ctx, src)
	}
	return "b64:" + src.Path, nil
}
