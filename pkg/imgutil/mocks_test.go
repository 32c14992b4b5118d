package imgutil

import (
	"context"
	"io"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// mockReader は remoteio.InputReader のテスト用モックなのだ。
type mockReader struct {
	remoteio.InputReader
	openFunc func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if m.openFunc != nil {
		return m.openFunc(ctx, uri)
	}
	return nil, io.EOF
}
