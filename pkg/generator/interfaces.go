package generator

import (
	"context"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// PayloadBuilder はモードごとのリクエストボディを組み立てるためのインターフェースです。
type PayloadBuilder interface {
	Build(ctx context.Context, mode domain.GenerationMode, params domain.GenerationParameters, source, mask *domain.ImageSource) (domain.Payload, error)
}

// Generator は呼び出し側が利用する生成の窓口です。
type Generator interface {
	// Submit はリクエストを検証して送信を開始し、すぐに Handle を返します。
	Submit(ctx context.Context, req Request) (*Handle, error)
	// Interrupt は Web UI で実行中の生成を中断するよう依頼します。
	Interrupt(ctx context.Context) (bool, error)
}

// Listener は Handle の完了時に 1 回だけ呼ばれるコールバックです。
type Listener func(Event)
