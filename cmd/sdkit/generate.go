package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/generator"
	"github.com/shouni/sdwebui-image-kit/pkg/imgutil"
)

type generateOptions struct {
	mode   string
	preset string
	source string
	mask   string
	outDir string
	format string
	params domain.GenerationParameters
}

func newGenerateCmd(a *app) *cobra.Command {
	opts := &generateOptions{params: domain.DefaultParameters()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "画像を生成して保存します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", domain.TextToImage.String(), "txt2img / img2img / inpaint")
	f.StringVar(&opts.preset, "preset", "", "normal / restoration / upscaling")
	f.StringVar(&opts.source, "source", "", "元画像のパス (gs:// や s3:// も可)")
	f.StringVar(&opts.mask, "mask", "", "inpaint のマスク画像のパス")
	f.StringVar(&opts.outDir, "out-dir", "", "出力先 (既定は SDKIT_OUTPUT_DIR)")
	f.StringVar(&opts.format, "format", "png", "png / jpg / webp")

	p := &opts.params
	f.StringVarP(&p.Prompt, "prompt", "p", "", "プロンプト")
	f.StringVar(&p.NegativePrompt, "negative-prompt", p.NegativePrompt, "ネガティブプロンプト")
	f.IntVar(&p.Steps, "steps", p.Steps, "サンプリングステップ数")
	f.Float64Var(&p.CFGScale, "cfg-scale", p.CFGScale, "CFG スケール")
	f.IntVar(&p.Width, "width", p.Width, "幅")
	f.IntVar(&p.Height, "height", p.Height, "高さ")
	f.Float64Var(&p.DenoisingStrength, "denoising", p.DenoisingStrength, "img2img / inpaint のノイズ除去強度 (0〜1)")
	f.IntVar(&p.BatchSize, "batch-size", p.BatchSize, "1 回で生成する枚数")
	f.Int64Var(&p.Seed, "seed", p.Seed, "シード (-1 でランダム)")
	f.BoolVar(&p.RestoreFaces, "restore-faces", p.RestoreFaces, "顔の補正を有効にする")
	f.StringVar(&p.ModelName, "model", "", "使用するチェックポイント")
	f.IntVar(&p.ClipSkipLayers, "clip-skip", p.ClipSkipLayers, "CLIP skip")
	return cmd
}

// sourceSizer は元画像の大きさを調べます。
type sourceSizer interface {
	SourceSize(ctx context.Context, src *domain.ImageSource) (int, int, error)
}

// applySourceSize は --width / --height が指定されていなければ元画像の大きさに合わせます。
func applySourceSize(ctx context.Context, sizer sourceSizer, params *domain.GenerationParameters, src *domain.ImageSource, widthSet, heightSet bool) error {
	if widthSet && heightSet {
		return nil
	}
	w, h, err := sizer.SourceSize(ctx, src)
	if err != nil {
		return fmt.Errorf("元画像の大きさを取得できませんでした: %w", err)
	}
	if !widthSet {
		params.Width = w
	}
	if !heightSet {
		params.Height = h
	}
	return nil
}

func runGenerate(cmd *cobra.Command, a *app, opts *generateOptions) error {
	mode, err := domain.ParseGenerationMode(opts.mode)
	if err != nil {
		return err
	}
	preset, err := domain.ParsePreset(opts.preset)
	if err != nil {
		return err
	}
	mode, params := preset.Apply(mode, opts.params)

	format := strings.ToLower(strings.TrimPrefix(opts.format, "."))
	if !imgutil.IsSupportedFormat(format) {
		return domain.NewValidationError(fmt.Sprintf("unsupported format %q", opts.format))
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = a.cfg.OutputDir
	}

	exec, err := a.newExecutor()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	req := generator.Request{Mode: mode, Params: params}
	if opts.source != "" {
		req.Source = domain.SourceFromPath(opts.source)
		flags := cmd.Flags()
		if err := applySourceSize(ctx, a.codec, &req.Params, req.Source, flags.Changed("width"), flags.Changed("height")); err != nil {
			return err
		}
	}
	if opts.mask != "" {
		req.Mask = domain.SourceFromPath(opts.mask)
	}

	h, err := exec.Submit(context.WithoutCancel(ctx), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "submitted %s (%s)\n", h.ID(), h.Mode())

	result, err := h.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Ctrl-C では Web UI 側の生成も止める
			if _, ierr := exec.Interrupt(context.Background()); ierr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "interrupt failed: %v\n", ierr)
			}
		}
		return err
	}

	if len(result.Images) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no images returned")
		return nil
	}
	for i, img := range result.Images {
		path := filepath.Join(outDir, fmt.Sprintf("%s-%d.%s", h.ID(), i, format))
		if err := imgutil.Export(img, path, a.cfg.ExportQuality); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
