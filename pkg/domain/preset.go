package domain

import (
	"fmt"
	"strings"
)

// Preset は生成パラメータの組み合わせに名前をつけたものです。
type Preset int

const (
	PresetNormal Preset = iota
	PresetRestoration
	PresetUpscaling
)

const (
	restorationDenoisingStrength = 0.30
	upscalingDenoisingStrength   = 0.05
)

var presetNames = map[Preset]string{
	PresetNormal:      "normal",
	PresetRestoration: "restoration",
	PresetUpscaling:   "upscaling",
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Preset(%d)", int(p))
}

// ParsePreset は名前から Preset を解決します。空文字は PresetNormal です。
func ParsePreset(s string) (Preset, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return PresetNormal, nil
	}
	for p, n := range presetNames {
		if n == name {
			return p, nil
		}
	}
	return PresetNormal, NewValidationError(fmt.Sprintf("unknown preset %q", s))
}

// Apply はプリセットをパラメータに適用し、使うべきモードと新しいパラメータを返します。
// 引数の params は変更しません。
func (p Preset) Apply(mode GenerationMode, params GenerationParameters) (GenerationMode, GenerationParameters) {
	switch p {
	case PresetRestoration:
		params.Prompt = DefaultRestorePrompt
		params.NegativePrompt = DefaultRestoreNegativePrompt
		params.DenoisingStrength = restorationDenoisingStrength
		return ImageToImage, params
	case PresetUpscaling:
		params.Prompt = DefaultRestorePrompt
		params.NegativePrompt = DefaultRestoreNegativePrompt
		params.DenoisingStrength = upscalingDenoisingStrength
		return ImageToImage, params
	default:
		return mode, params
	}
}
