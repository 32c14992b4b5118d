package domain

// 生成パラメータの既定値なのだ。
const (
	DefaultSteps             = 10
	DefaultCFGScale          = 7.0
	DefaultWidth             = 512
	DefaultHeight            = 512
	DefaultDenoisingStrength = 0.3
	DefaultBatchSize         = 2
	DefaultClipSkipLayers    = 2

	// RandomSeed を指定すると Web UI 側でシードが決められます。
	RandomSeed int64 = -1
)

// DefaultNegativePrompt はネガティブプロンプト未指定時に使う定型文です。
const DefaultNegativePrompt = "lowres, bad anatomy, bad hands, text, error, missing fingers, extra digit, fewer digits, cropped, worst quality, low quality, normal quality, jpeg artifacts, signature, watermark, username, blurry"

// 補正プリセット用のプロンプトです。
const (
	DefaultRestorePrompt         = "realistic, clean, clear, ultra-sharp, super sharp, high-res, DSLR quality, high-quality"
	DefaultRestoreNegativePrompt = "{ugly}, {unrealistic}, bad-quality, jpg-artifacts, unclear, smooth, weird, artifacts, {anime}, {cartoon}, {hand drawn}, {overexposed}"
)

// GenerationParameters は 1 回の生成に使う設定値です。値渡しで扱うのだ。
type GenerationParameters struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Steps             int     `json:"steps"`
	CFGScale          float64 `json:"cfg_scale"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DenoisingStrength float64 `json:"denoising_strength"`
	BatchSize         int     `json:"batch_size"`
	Seed              int64   `json:"seed"`
	RestoreFaces      bool    `json:"restore_faces"`
	ModelName         string  `json:"model_name,omitempty"`
	ClipSkipLayers    int     `json:"clip_skip_layers"`
}

// DefaultParameters は既定値で埋めた GenerationParameters を返します。
func DefaultParameters() GenerationParameters {
	return GenerationParameters{
		NegativePrompt:    DefaultNegativePrompt,
		Steps:             DefaultSteps,
		CFGScale:          DefaultCFGScale,
		Width:             DefaultWidth,
		Height:            DefaultHeight,
		DenoisingStrength: DefaultDenoisingStrength,
		BatchSize:         DefaultBatchSize,
		Seed:              RandomSeed,
		ClipSkipLayers:    DefaultClipSkipLayers,
	}
}

// HasModelOverride はモデル指定 (override_settings) を送るかどうかを返します。
func (p GenerationParameters) HasModelOverride() bool {
	return p.ModelName != ""
}
