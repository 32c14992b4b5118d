package payload

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// ImageEncoder は ImageSource を base64 にするためのインターフェースです。
type ImageEncoder interface {
	EncodeSource(ctx context.Context, src *domain.ImageSource) (string, error)
}

// Builder はモードごとのリクエストボディを組み立てます。ネットワークには触れません。
type Builder struct {
	encoder  ImageEncoder
	maskBlur int
}

// NewBuilder は Builder を生成します。maskBlur は inpaint の mask_blur* に使う値です。
func NewBuilder(encoder ImageEncoder, maskBlur int) (*Builder, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if maskBlur < 0 {
		return nil, fmt.Errorf("maskBlur must not be negative: %d", maskBlur)
	}
	return &Builder{encoder: encoder, maskBlur: maskBlur}, nil
}

// Build は mode と params から新しい Payload を作ります。
// txt2img では source と mask は無視されます。
func (b *Builder) Build(ctx context.Context, mode domain.GenerationMode, params domain.GenerationParameters, source, mask *domain.ImageSource) (domain.Payload, error) {
	if err := Validate(mode, params); err != nil {
		return nil, err
	}
	if mode.RequiresSource() && source.IsEmpty() {
		return nil, domain.NewValidationError(fmt.Sprintf("%s requires a source image", mode))
	}
	if mode.RequiresMask() && mask.IsEmpty() {
		return nil, domain.NewValidationError(fmt.Sprintf("%s requires a mask image", mode))
	}

	p := commonFields(params)

	if params.HasModelOverride() {
		override := map[string]any{
			"sd_model_checkpoint":      params.ModelName,
			"CLIP_stop_at_last_layers": params.ClipSkipLayers,
		}
		if mode == domain.TextToImage {
			override["show_progress_every_n_steps"] = 1
		}
		p["override_settings"] = override
	}

	if mode == domain.TextToImage {
		return p, nil
	}

	p["denoising_strength"] = params.DenoisingStrength

	src, err := b.encoder.EncodeSource(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("source image: %w", err)
	}
	p["init_images"] = []string{src}

	if mode == domain.Inpaint {
		m, err := b.encoder.EncodeSource(ctx, mask)
		if err != nil {
			return nil, fmt.Errorf("mask image: %w", err)
		}
		p["mask"] = m
		p["mask_blur"] = b.maskBlur
		p["mask_blur_x"] = b.maskBlur
		p["mask_blur_y"] = b.maskBlur
	}
	return p, nil
}

func commonFields(params domain.GenerationParameters) domain.Payload {
	return domain.Payload{
		"prompt":          params.Prompt,
		"negative_prompt": params.NegativePrompt,
		"steps":           params.Steps,
		"cfg_scale":       params.CFGScale,
		"width":           params.Width,
		"height":          params.Height,
		"seed":            params.Seed,
		"restore_faces":   params.RestoreFaces,
		"batch_size":      params.BatchSize,
	}
}

// Validate は送信前にパラメータの範囲を確認します。問題はまとめて 1 つのエラーで返すのだ。
func Validate(mode domain.GenerationMode, params domain.GenerationParameters) error {
	if _, err := mode.MarshalText(); err != nil {
		return err
	}

	var problems []string
	if params.Width <= 0 || params.Height <= 0 {
		problems = append(problems, fmt.Sprintf("width and height must be positive (got %dx%d)", params.Width, params.Height))
	}
	if params.Steps <= 0 {
		problems = append(problems, fmt.Sprintf("steps must be positive (got %d)", params.Steps))
	}
	if params.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch_size must be positive (got %d)", params.BatchSize))
	}
	if params.CFGScale <= 0 {
		problems = append(problems, fmt.Sprintf("cfg_scale must be positive (got %g)", params.CFGScale))
	}
	if mode != domain.TextToImage && (params.DenoisingStrength < 0 || params.DenoisingStrength > 1) {
		problems = append(problems, fmt.Sprintf("denoising_strength must be within [0,1] (got %g)", params.DenoisingStrength))
	}
	if params.HasModelOverride() && params.ClipSkipLayers < 1 {
		problems = append(problems, fmt.Sprintf("clip skip must be at least 1 (got %d)", params.ClipSkipLayers))
	}
	if len(problems) > 0 {
		return domain.NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}
