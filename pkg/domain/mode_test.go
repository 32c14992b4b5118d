package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationMode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   GenerationMode
		source bool
		mask   bool
	}{
		{"txt2img", "txt2img", TextToImage, false, false},
		{"img2img (大文字混在)", "Img2Img", ImageToImage, true, false},
		{"inpaint (前後空白)", "  inpaint ", Inpaint, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGenerationMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.source, got.RequiresSource())
			assert.Equal(t, tt.mask, got.RequiresMask())
		})
	}

	t.Run("未知のモードは ValidationError なのだ", func(t *testing.T) {
		_, err := ParseGenerationMode("outpaint")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("JSON では名前で扱うのだ", func(t *testing.T) {
		var v struct {
			Mode GenerationMode `json:"mode"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"mode":"inpaint"}`), &v))
		assert.Equal(t, Inpaint, v.Mode)

		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t, `{"mode":"inpaint"}`, string(out))
	})

	t.Run("範囲外の値の String", func(t *testing.T) {
		assert.Equal(t, "GenerationMode(9)", GenerationMode(9).String())
	})
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters()

	assert.Equal(t, 10, p.Steps)
	assert.Equal(t, 7.0, p.CFGScale)
	assert.Equal(t, 512, p.Width)
	assert.Equal(t, 512, p.Height)
	assert.Equal(t, 0.3, p.DenoisingStrength)
	assert.Equal(t, 2, p.BatchSize)
	assert.Equal(t, RandomSeed, p.Seed)
	assert.Equal(t, 2, p.ClipSkipLayers)
	assert.Equal(t, DefaultNegativePrompt, p.NegativePrompt)
	assert.False(t, p.HasModelOverride())
}
