package endpoint

import (
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// NewClient は Web UI と通信する HTTP クライアントを返します。
// 生成の POST が二重に届かないよう、リトライはしません。
func NewClient(timeout time.Duration) httpkit.ClientInterface {
	return httpkit.New(timeout, httpkit.WithMaxRetries(0))
}
