package imgutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/sdwebui-image-kit/pkg/domain"
)

// テスト用のダミー画像 (10x10 のグラデーション) を作成するヘルパー
func createDummyImage(t *testing.T) image.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	return img
}

func assertSamePixels(t *testing.T, want, got image.Image) {
	t.Helper()
	require.Equal(t, want.Bounds(), got.Bounds())
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			wr, wg, wb, wa := want.At(x, y).RGBA()
			gr, gg, gb, ga := got.At(x, y).RGBA()
			require.Equal(t, [4]uint32{wr, wg, wb, wa}, [4]uint32{gr, gg, gb, ga}, "pixel (%d,%d)", x, y)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	t.Run("PNG はピクセル単位で往復できるのだ", func(t *testing.T) {
		img := createDummyImage(t)

		text, err := EncodeImageToBase64(img)
		require.NoError(t, err)
		assert.NotContains(t, text, "\n")

		got, err := DecodeBase64ToImage(text)
		require.NoError(t, err)
		assertSamePixels(t, img, got)
	})

	t.Run("data URI の接頭辞つきでも読める", func(t *testing.T) {
		text, err := EncodeImageToBase64(createDummyImage(t))
		require.NoError(t, err)

		_, err = DecodeBase64ToImage("data:image/png;base64," + text)
		require.NoError(t, err)
	})

	t.Run("不正な base64 は DecodeError", func(t *testing.T) {
		_, err := DecodeBase64ToImage("not*base64!")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDecode))
	})

	t.Run("画像でないバイト列は DecodeError", func(t *testing.T) {
		_, err := DecodeBase64ToImage(base64.StdEncoding.EncodeToString([]byte("hello")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDecode))
	})

	t.Run("nil 画像は ValidationError", func(t *testing.T) {
		_, err := EncodeImageToBase64(nil)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestCodecFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("ローカルファイルの生バイトを base64 にするのだ", func(t *testing.T) {
		path := filepath.Join(dir, "raw.bin")
		require.NoError(t, WriteBytesToFile([]byte("raw-bytes"), path))

		text, err := NewCodec(nil).EncodeFileToBase64(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("raw-bytes")), text)

		back, err := DecodeBase64ToBytes(text)
		require.NoError(t, err)
		assert.Equal(t, []byte("raw-bytes"), back)
	})

	t.Run("存在しないファイルは IOError", func(t *testing.T) {
		_, err := NewCodec(nil).EncodeFileToBase64(ctx, filepath.Join(dir, "missing.png"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrIO))
	})

	t.Run("gs:// は remoteio 経由で読む", func(t *testing.T) {
		var opened string
		reader := &mockReader{openFunc: func(ctx context.Context, uri string) (io.ReadCloser, error) {
			opened = uri
			return io.NopCloser(strings.NewReader("remote")), nil
		}}

		text, err := NewCodec(reader).EncodeFileToBase64(ctx, "gs://bucket/src.png")
		require.NoError(t, err)
		assert.Equal(t, "gs://bucket/src.png", opened)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("remote")), text)
	})

	t.Run("reader なしの s3:// は IOError", func(t *testing.T) {
		_, err := NewCodec(nil).EncodeFileToBase64(ctx, "s3://bucket/src.png")
		assert.True(t, errors.Is(err, domain.ErrIO))
	})

	t.Run("EncodeSource は Image を優先する", func(t *testing.T) {
		img := createDummyImage(t)
		want, err := EncodeImageToBase64(img)
		require.NoError(t, err)

		got, err := NewCodec(nil).EncodeSource(ctx, &domain.ImageSource{Path: "ignored.png", Image: img})
		require.NoError(t, err)
		assert.Equal(t, want, got)

		_, err = NewCodec(nil).EncodeSource(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestSourceSize(t *testing.T) {
	ctx := context.Background()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 16))
	data, err := EncodePNG(img)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "source.png")
	require.NoError(t, WriteBytesToFile(data, path))

	t.Run("ファイルのヘッダーから大きさを読む", func(t *testing.T) {
		w, h, err := NewCodec(nil).SourceSize(ctx, domain.SourceFromPath(path))
		require.NoError(t, err)
		assert.Equal(t, 24, w)
		assert.Equal(t, 16, h)
	})

	t.Run("メモリ上の画像はそのまま使うのだ", func(t *testing.T) {
		w, h, err := NewCodec(nil).SourceSize(ctx, domain.SourceFromImage(img))
		require.NoError(t, err)
		assert.Equal(t, 24, w)
		assert.Equal(t, 16, h)
	})

	t.Run("画像でないファイルは DecodeError", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.png")
		require.NoError(t, WriteBytesToFile([]byte("not an image"), bad))
		_, _, err := NewCodec(nil).SourceSize(ctx, domain.SourceFromPath(bad))
		assert.True(t, errors.Is(err, domain.ErrDecode))
	})

	t.Run("空のソースは ValidationError", func(t *testing.T) {
		_, _, err := NewCodec(nil).SourceSize(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	img := createDummyImage(t)

	t.Run("PNG はロスレスで書き出すのだ", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "out.png")
		require.NoError(t, Export(img, path, 0))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		got, _, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assertSamePixels(t, img, got)
	})

	t.Run("JPEG で書き出せる", func(t *testing.T) {
		path := filepath.Join(dir, "out.JPG")
		require.NoError(t, Export(img, path, 75))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		_, format, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("WebP で書き出せる", func(t *testing.T) {
		path := filepath.Join(dir, "out.webp")
		require.NoError(t, Export(img, path, 80))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Greater(t, len(data), 12)
		assert.Equal(t, "RIFF", string(data[:4]))
		assert.Equal(t, "WEBP", string(data[8:12]))

		got, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		require.NoError(t, err)
		assert.Equal(t, img.Bounds().Size(), got.Bounds().Size())
	})

	t.Run("Encode は範囲外の品質を既定値で扱う", func(t *testing.T) {
		data, err := Encode(img, "webp", 0)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("RIFF")))
	})

	t.Run("IsSupportedFormat", func(t *testing.T) {
		assert.True(t, IsSupportedFormat(".webp"))
		assert.True(t, IsSupportedFormat("JPEG"))
		assert.False(t, IsSupportedFormat("bmp"))
	})

	t.Run("未対応の拡張子は ValidationError", func(t *testing.T) {
		err := Export(img, filepath.Join(dir, "out.bmp"), 90)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}
