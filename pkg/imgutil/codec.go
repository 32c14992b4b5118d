package imgutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// リモートストレージとして扱う URI のスキームです。
var remoteSchemes = []string{"gs://", "s3://"}

// Codec は画像と base64 文字列の相互変換を担当します。
type Codec struct {
	reader remoteio.InputReader
}

// NewCodec は Codec を生成します。reader が nil の場合、リモート URI は読めません。
func NewCodec(reader remoteio.InputReader) *Codec {
	return &Codec{reader: reader}
}

// EncodeFileToBase64 はファイルの生バイトを標準 base64 (改行なし) にします。
func (c *Codec) EncodeFileToBase64(ctx context.Context, path string) (string, error) {
	data, err := c.readFile(ctx, path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeSource は ImageSource を base64 にします。Image があればそちらを優先するのだ。
func (c *Codec) EncodeSource(ctx context.Context, src *domain.ImageSource) (string, error) {
	if src.IsEmpty() {
		return "", domain.NewValidationError("image source is empty")
	}
	if src.Image != nil {
		return EncodeImageToBase64(src.Image)
	}
	return c.EncodeFileToBase64(ctx, src.Path)
}

// SourceSize は ImageSource の幅と高さを返します。ファイルはヘッダーだけを読むのだ。
func (c *Codec) SourceSize(ctx context.Context, src *domain.ImageSource) (int, int, error) {
	if src.IsEmpty() {
		return 0, 0, domain.NewValidationError("image source is empty")
	}
	if src.Image != nil {
		b := src.Image.Bounds()
		return b.Dx(), b.Dy(), nil
	}

	data, err := c.readFile(ctx, src.Path)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, domain.NewDecodeError(fmt.Sprintf("failed to read image size of %s", src.Path), err)
	}
	return cfg.Width, cfg.Height, nil
}

func (c *Codec) readFile(ctx context.Context, path string) ([]byte, error) {
	if isRemote(path) {
		if c.reader == nil {
			return nil, domain.NewIOError(fmt.Sprintf("no remote reader configured for %s", path), nil)
		}
		rc, err := c.reader.Open(ctx, path)
		if err != nil {
			return nil, domain.NewIOError(fmt.Sprintf("failed to open %s", path), err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, domain.NewIOError(fmt.Sprintf("failed to read %s", path), err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewIOError(fmt.Sprintf("failed to read %s", path), err)
	}
	return data, nil
}

func isRemote(path string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// EncodeImageToBase64 は画像をメモリ上で PNG にしてから base64 にします。ディスクには触れません。
func EncodeImageToBase64(img image.Image) (string, error) {
	if img == nil {
		return "", domain.NewValidationError("image is nil")
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64ToBytes は base64 文字列をバイト列に戻します。
// "data:image/png;base64," のような data URI の接頭辞も受け付けます。
func DecodeBase64ToBytes(text string) ([]byte, error) {
	if i := strings.Index(text, ";base64,"); i >= 0 && strings.HasPrefix(text, "data:") {
		text = text[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, domain.NewDecodeError("invalid base64 image data", err)
	}
	return data, nil
}

// DecodeBase64ToImage は base64 文字列を画像にします。PNG / JPEG / GIF / WebP に対応します。
func DecodeBase64ToImage(text string) (image.Image, error) {
	data, err := DecodeBase64ToBytes(text)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewDecodeError("undecodable image bytes", err)
	}
	return img, nil
}

// WriteBytesToFile はバイト列をそのままファイルに書き込みます。
func WriteBytesToFile(data []byte, path string) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.NewIOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// EncodePNG は画像を PNG のバイト列にします。
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, domain.NewDecodeError("failed to encode png", err)
	}
	return buf.Bytes(), nil
}
