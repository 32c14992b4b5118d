package domain

import (
	"fmt"
	"strings"
)

// GenerationMode は Web UI に依頼する生成の種類です。
type GenerationMode int

const (
	TextToImage GenerationMode = iota
	ImageToImage
	Inpaint
)

// modeNames は各 GenerationMode のワイヤ上の名前です。
var modeNames = []string{"txt2img", "img2img", "inpaint"}

// String は GenerationMode の名前を返します。
func (m GenerationMode) String() string {
	if int(m) >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("GenerationMode(%d)", int(m))
}

// RequiresSource は元画像 (init_images) が必須かどうかを返します。
func (m GenerationMode) RequiresSource() bool {
	return m == ImageToImage || m == Inpaint
}

// RequiresMask はマスク画像が必須かどうかを返します。
func (m GenerationMode) RequiresMask() bool {
	return m == Inpaint
}

// ParseGenerationMode は名前から GenerationMode を解決します。
func ParseGenerationMode(s string) (GenerationMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return GenerationMode(i), nil
		}
	}
	return TextToImage, NewValidationError(fmt.Sprintf("unknown generation mode %q", s))
}

// MarshalText は JSON などへ名前で書き出すための実装です。
func (m GenerationMode) MarshalText() ([]byte, error) {
	if int(m) < 0 || int(m) >= len(modeNames) {
		return nil, NewValidationError(fmt.Sprintf("invalid generation mode %d", int(m)))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText は名前から GenerationMode を復元します。
func (m *GenerationMode) UnmarshalText(text []byte) error {
	parsed, err := ParseGenerationMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AllGenerationModes はすべての GenerationMode を返します。
func AllGenerationModes() []GenerationMode {
	return []GenerationMode{TextToImage, ImageToImage, Inpaint}
}
