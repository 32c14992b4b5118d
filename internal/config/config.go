package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shouni/sdwebui-image-kit/pkg/endpoint"
	"github.com/shouni/sdwebui-image-kit/pkg/imgutil"
)

// Config は CLI とブリッジサーバーの設定です。
type Config struct {
	// Web UI
	BaseURL        string
	RequestTimeout time.Duration
	MaskBlur       int

	// 出力
	OutputDir     string
	ExportQuality int

	// ブリッジ
	BridgeAddr     string
	AllowedOrigins []string
	JobRetention   time.Duration

	LogLevel string
}

// Load は .env と環境変数から設定を読み込みます。
// files を省略するとカレントディレクトリの .env を読むのだ。見つからなくても警告だけです。
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Warn(".env ファイルの読み込みに失敗しました", "error", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv は環境変数だけから設定を作ります。検証はしません。
func FromEnv() *Config {
	return &Config{
		BaseURL:        getEnvOrDefault("SDWEBUI_BASE_URL", endpoint.DefaultBaseURL),
		RequestTimeout: getEnvAsDurationOrDefault("SDWEBUI_REQUEST_TIMEOUT", 10*time.Minute),
		MaskBlur:       getEnvAsIntOrDefault("SDWEBUI_MASK_BLUR", 0),
		OutputDir:      getEnvOrDefault("SDKIT_OUTPUT_DIR", "outputs"),
		ExportQuality:  getEnvAsIntOrDefault("SDKIT_EXPORT_QUALITY", imgutil.DefaultExportQuality),
		BridgeAddr:     getEnvOrDefault("SDKIT_BRIDGE_ADDR", "127.0.0.1:8765"),
		AllowedOrigins: getEnvAsListOrDefault("SDKIT_ALLOWED_ORIGINS", nil),
		JobRetention:   getEnvAsDurationOrDefault("SDKIT_JOB_RETENTION", 30*time.Minute),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if _, err := endpoint.New(c.BaseURL); err != nil {
		return fmt.Errorf("SDWEBUI_BASE_URL が不正です: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("SDWEBUI_REQUEST_TIMEOUT は正の値である必要があります")
	}
	if c.MaskBlur < 0 {
		return fmt.Errorf("SDWEBUI_MASK_BLUR は 0 以上である必要があります")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("SDKIT_OUTPUT_DIR が設定されていません")
	}
	if c.ExportQuality < 1 || c.ExportQuality > 100 {
		return fmt.Errorf("SDKIT_EXPORT_QUALITY は 1 から 100 の範囲である必要があります")
	}
	if c.BridgeAddr == "" {
		return fmt.Errorf("SDKIT_BRIDGE_ADDR が設定されていません")
	}
	if c.JobRetention <= 0 {
		return fmt.Errorf("SDKIT_JOB_RETENTION は正の値である必要があります")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel は LogLevel を slog.Level に変換します。
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL が不正です: %q", c.LogLevel)
	}
	return level, nil
}

// getEnvOrDefault は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、存在しない場合はデフォルト値を返します
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は環境変数を時間として取得し、存在しない場合はデフォルト値を返します
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsListOrDefault は環境変数をカンマ区切りのリストとして取得し、存在しない場合はデフォルト値を返します
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
