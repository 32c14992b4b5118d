package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// ErrPending は Handle がまだ完了していないことを示します。
var ErrPending = errors.New("generation is still running")

// Handle は送信済みの生成 1 件を表します。完了は一度だけ確定するのだ。
type Handle struct {
	id   string
	mode domain.GenerationMode

	once   sync.Once
	done   chan struct{}
	result      *domain.GenerationResult
	err         error
	completedAt time.Time
}

func newHandle(id string, mode domain.GenerationMode) *Handle {
	return &Handle{id: id, mode: mode, done: make(chan struct{})}
}

// ID は Handle の識別子を返します。
func (h *Handle) ID() string {
	return h.id
}

// Mode は生成モードを返します。
func (h *Handle) Mode() domain.GenerationMode {
	return h.mode
}

// Done は完了時に閉じられるチャネルを返します。
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait は完了するか ctx が終わるまで待ちます。
// ctx が先に終わった場合は ctx のエラーを返し、生成そのものは続きます。
func (h *Handle) Wait(ctx context.Context) (*domain.GenerationResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result は待たずに現在の状態を返します。未完了なら ErrPending です。
func (h *Handle) Result() (*domain.GenerationResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	default:
		return nil, ErrPending
	}
}

// CompletedAt は完了した時刻を返します。未完了ならゼロ値です。
func (h *Handle) CompletedAt() time.Time {
	select {
	case <-h.done:
		return h.completedAt
	default:
		return time.Time{}
	}
}

// complete は結果を確定します。2 回目以降の呼び出しは無視され false を返します。
func (h *Handle) complete(result *domain.GenerationResult, err error) bool {
	completed := false
	h.once.Do(func() {
		if err != nil {
			result = nil
		}
		h.result = result
		h.err = err
		h.completedAt = time.Now()
		close(h.done)
		completed = true
	})
	return completed
}
