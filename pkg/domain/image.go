package domain

import (
	"image"
)

// ImageSource は元画像やマスクの入力です。Path か Image のどちらかを指定します。
// Path はローカルパスのほか gs:// や s3:// の URI も受け付けます。
type ImageSource struct {
	Path  string
	Image image.Image
}

// SourceFromPath はパス指定の ImageSource を返します。
func SourceFromPath(path string) *ImageSource {
	return &ImageSource{Path: path}
}

// SourceFromImage はメモリ上の画像から ImageSource を返します。
func SourceFromImage(img image.Image) *ImageSource {
	return &ImageSource{Image: img}
}

// IsEmpty は有効な入力を持たない場合に true を返します。nil でも安全です。
func (s *ImageSource) IsEmpty() bool {
	return s == nil || (s.Path == "" && s.Image == nil)
}

// Payload は Web UI に送る JSON ボディです。Build の戻り値は以後変更しません。
type Payload map[string]any

// GenerationResult は成功した生成の結果です。Images はサービスが返した順です。
type GenerationResult struct {
	Images []image.Image
	Info   string
}

// Model は /sdapi/v1/sd-models の 1 要素です。
type Model struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Hash      string `json:"hash"`
	SHA256    string `json:"sha256"`
	Filename  string `json:"filename"`
}

// Progress は生成中ジョブの進捗です。Progress は [0,1] に丸められます。
type Progress struct {
	Progress    float64 `json:"progress"`
	ETARelative float64 `json:"eta_relative"`
	Active      bool    `json:"active"`
	Queued      bool    `json:"queued"`
	Completed   bool    `json:"completed"`
	TextInfo    string  `json:"textinfo,omitempty"`
}

// ClampProgress は進捗値を [0,1] に収めます。
func ClampProgress(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
