package endpoint

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// DefaultBaseURL はローカルで起動した Web UI の既定アドレスです。
const DefaultBaseURL = "http://127.0.0.1:7860"

// Name は Web UI の API を識別する名前です。
type Name string

const (
	Models       Name = "models"
	Progress     Name = "progress"
	Options      Name = "options"
	Interrupt    Name = "interrupt"
	TextToImage  Name = "txt2img"
	ImageToImage Name = "img2img"
)

// paths は各 API のパスです。
var paths = map[Name]string{
	Models:       "/sdapi/v1/sd-models",
	Progress:     "/internal/progress",
	Options:      "/sdapi/v1/options",
	Interrupt:    "/sdapi/v1/interrupt",
	TextToImage:  "/sdapi/v1/txt2img",
	ImageToImage: "/sdapi/v1/img2img",
}

// Registry はベース URL から組み立てた URL の表です。生成後は読み取り専用なのだ。
type Registry struct {
	base string
	urls map[Name]string
}

// New はベース URL を検証して Registry を生成します。空文字なら DefaultBaseURL を使います。
func New(baseURL string) (*Registry, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("invalid base URL %q", baseURL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, domain.NewValidationError(fmt.Sprintf("base URL must use http or https: %q", baseURL))
	}
	if u.Host == "" {
		return nil, domain.NewValidationError(fmt.Sprintf("base URL has no host: %q", baseURL))
	}

	urls := make(map[Name]string, len(paths))
	for name, p := range paths {
		urls[name] = base + p
	}
	return &Registry{base: base, urls: urls}, nil
}

// BaseURL は正規化済みのベース URL を返します。
func (r *Registry) BaseURL() string {
	return r.base
}

// URL は name に対応する完全な URL を返します。未知の名前は空文字です。
func (r *Registry) URL(name Name) string {
	return r.urls[name]
}

// ForMode は生成モードに対応する URL を返します。inpaint は img2img を使うのだ。
func (r *Registry) ForMode(mode domain.GenerationMode) string {
	if mode == domain.TextToImage {
		return r.urls[TextToImage]
	}
	return r.urls[ImageToImage]
}
