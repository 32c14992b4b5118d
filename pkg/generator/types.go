package generator

import (
	"encoding/json"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// Request は 1 回分の生成依頼です。txt2img では Source と Mask は使われません。
type Request struct {
	Mode   domain.GenerationMode
	Params domain.GenerationParameters
	Source *domain.ImageSource
	Mask   *domain.ImageSource
}

// Event は Handle の完了通知です。Err が nil なら Result が入っています。
type Event struct {
	HandleID string
	Mode     domain.GenerationMode
	Result   *domain.GenerationResult
	Err      error
}

// Succeeded は生成が成功したかどうかを返します。
func (e Event) Succeeded() bool {
	return e.Err == nil
}

// generationResponse は txt2img / img2img のレスポンスです。
type generationResponse struct {
	Images []string        `json:"images"`
	Info   json.RawMessage `json:"info"`
}

// infoText は info を文字列で返します。Web UI は JSON を文字列に埋め込んで返すのだ。
func (r generationResponse) infoText() string {
	if len(r.Info) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Info, &s); err == nil {
		return s
	}
	return string(r.Info)
}
