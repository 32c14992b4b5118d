package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetApply(t *testing.T) {
	base := DefaultParameters()
	base.Prompt = "a cat"

	t.Run("Normal は何も変えないのだ", func(t *testing.T) {
		mode, got := PresetNormal.Apply(TextToImage, base)
		assert.Equal(t, TextToImage, mode)
		assert.Equal(t, base, got)
	})

	t.Run("Restoration は img2img / 0.30 / 補正プロンプト", func(t *testing.T) {
		mode, got := PresetRestoration.Apply(TextToImage, base)
		assert.Equal(t, ImageToImage, mode)
		assert.Equal(t, 0.30, got.DenoisingStrength)
		assert.Equal(t, DefaultRestorePrompt, got.Prompt)
		assert.Equal(t, DefaultRestoreNegativePrompt, got.NegativePrompt)
	})

	t.Run("Upscaling は img2img / 0.05", func(t *testing.T) {
		mode, got := PresetUpscaling.Apply(Inpaint, base)
		assert.Equal(t, ImageToImage, mode)
		assert.Equal(t, 0.05, got.DenoisingStrength)
		assert.Equal(t, DefaultRestorePrompt, got.Prompt)
	})

	t.Run("呼び出し元の値は変更されないのだ", func(t *testing.T) {
		PresetUpscaling.Apply(TextToImage, base)
		assert.Equal(t, "a cat", base.Prompt)
		assert.Equal(t, 0.3, base.DenoisingStrength)
	})
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		input   string
		want    Preset
		wantErr bool
	}{
		{"", PresetNormal, false},
		{"Normal", PresetNormal, false},
		{"restoration", PresetRestoration, false},
		{"UPSCALING", PresetUpscaling, false},
		{"sharpen", PresetNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePreset(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
