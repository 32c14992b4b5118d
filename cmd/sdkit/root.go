package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/sdwebui-image-kit/internal/config"
	"github.com/shouni/sdwebui-image-kit/pkg/domain"
	"github.com/shouni/sdwebui-image-kit/pkg/endpoint"
	"github.com/shouni/sdwebui-image-kit/pkg/generator"
	"github.com/shouni/sdwebui-image-kit/pkg/imgutil"
	"github.com/shouni/sdwebui-image-kit/pkg/payload"
	"github.com/shouni/sdwebui-image-kit/pkg/query"
)

// notRunningMessage は Web UI に接続できないときに表示する案内です。
const notRunningMessage = "Stable Diffusion web UI is not running. Please start it first."

// app は各コマンドで共有する依存関係です。
type app struct {
	cfg      *config.Config
	registry *endpoint.Registry
	client   httpkit.ClientInterface
	codec    *imgutil.Codec
	builder  *payload.Builder
	query    *query.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var baseURL string

	root := &cobra.Command{
		Use:           "sdkit",
		Short:         "Stable Diffusion web UI を操作するツール",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(baseURL)
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "web UI のベース URL (既定は SDWEBUI_BASE_URL)")

	root.AddCommand(
		newGenerateCmd(a),
		newModelsCmd(a),
		newProgressCmd(a),
		newSetModelCmd(a),
		newInterruptCmd(a),
		newServeCmd(a),
	)

	return root
}

// printError はエラーを表示します。接続できない場合は起動の案内も出すのだ。
func printError(w io.Writer, err error) {
	if errors.Is(err, domain.ErrNetwork) {
		fmt.Fprintln(w, notRunningMessage)
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func (a *app) init(baseURL string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	registry, err := endpoint.New(cfg.BaseURL)
	if err != nil {
		return err
	}
	client := endpoint.NewClient(cfg.RequestTimeout)

	codec := imgutil.NewCodec(nil)
	builder, err := payload.NewBuilder(codec, cfg.MaskBlur)
	if err != nil {
		return err
	}
	svc, err := query.NewService(registry, client)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.registry = registry
	a.client = client
	a.codec = codec
	a.builder = builder
	a.query = svc
	return nil
}

// newExecutor はコマンドごとに Executor を作ります。
func (a *app) newExecutor(opts ...generator.ExecutorOption) (*generator.Executor, error) {
	return generator.NewExecutor(a.builder, a.registry, a.client, opts...)
}
