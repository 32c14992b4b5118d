package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// DefaultExportQuality は JPEG / WebP 書き出し時の既定の品質です。
const DefaultExportQuality = 90

// EncodeJPEG は画像を JPEG に圧縮します。
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, domain.NewDecodeError("failed to encode jpeg", err)
	}
	return buf.Bytes(), nil
}

// EncodeWebP は画像を非可逆の WebP に圧縮します。
func EncodeWebP(img image.Image, quality int) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return nil, domain.NewDecodeError("failed to create webp encoder options", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, domain.NewDecodeError("failed to encode webp", err)
	}
	return buf.Bytes(), nil
}

// IsSupportedFormat は書き出しに対応した拡張子かどうかを返します。先頭の "." はあってもなくても構いません。
func IsSupportedFormat(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png", "jpg", "jpeg", "webp":
		return true
	default:
		return false
	}
}

// Encode は拡張子 (.png / .jpg / .jpeg / .webp) に合わせて画像をエンコードします。
func Encode(img image.Image, ext string, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultExportQuality
	}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return EncodePNG(img)
	case "jpg", "jpeg":
		return EncodeJPEG(img, quality)
	case "webp":
		return EncodeWebP(img, quality)
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported export format %q", ext))
	}
}

// Export は生成結果を path に書き出します。形式は拡張子で決まるのだ。
func Export(img image.Image, path string, quality int) error {
	if img == nil {
		return domain.NewValidationError("image is nil")
	}
	data, err := Encode(img, filepath.Ext(path), quality)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.NewIOError(fmt.Sprintf("failed to create %s", dir), err)
		}
	}
	return WriteBytesToFile(data, path)
}
