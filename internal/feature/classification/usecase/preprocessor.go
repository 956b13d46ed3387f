package usecase

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"classifier_backend/internal/feature/classification/domain"
	"classifier_backend/internal/feature/classification/domain/entity"
)

const (
	// DefaultImageSize は IMAGE_SIZE が未設定の場合の入力解像度です。
	DefaultImageSize = 64
	// DefaultMaxPixels はデコードを許可する画素数の上限です（約179M画素）。
	DefaultMaxPixels = 178956970
)

// Preprocessor は画像バイト列をモデル入力テンソルに変換します。
// 状態を持たないため並行に呼び出して問題ありません。
type Preprocessor struct {
	size      int
	maxPixels int64
}

// PreprocessorOption はPreprocessorの任意設定です。
type PreprocessorOption func(*Preprocessor)

// WithMaxPixels はデコード前に許可する幅×高さの上限を設定します。0以下は DefaultMaxPixels になります。
func WithMaxPixels(n int64) PreprocessorOption {
	return func(p *Preprocessor) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// NewPreprocessor は size×size に変換するPreprocessorを生成します。
// size が0以下の場合は DefaultImageSize を使用します。
func NewPreprocessor(size int, opts ...PreprocessorOption) *Preprocessor {
	if size <= 0 {
		size = DefaultImageSize
	}
	p := &Preprocessor{size: size, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size は出力テンソルの高さ・幅を返します。
func (p *Preprocessor) Size() int {
	return p.size
}

// Preprocess はデコード、RGB化、リサイズ、[0,1]への正規化を行い (1,H,W,3) のテンソルを返します。
func (p *Preprocessor) Preprocess(raw []byte) (entity.Tensor, error) {
	if len(raw) == 0 {
		return entity.Tensor{}, fmt.Errorf("%w: empty input", domain.ErrDecode)
	}
	// ヘッダーだけを読んで寸法を検証してから全体をデコードする
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return entity.Tensor{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return entity.Tensor{}, fmt.Errorf("%w: image has no pixels (%dx%d)", domain.ErrDecode, cfg.Width, cfg.Height)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > p.maxPixels {
		return entity.Tensor{}, fmt.Errorf("%w: %dx%d exceeds the %d pixel limit",
			domain.ErrDecode, cfg.Width, cfg.Height, p.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return entity.Tensor{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return entity.Tensor{}, fmt.Errorf("%w: image has no pixels", domain.ErrDecode)
	}

	rgb := toOpaqueRGBA(img)
	resized := resize.Resize(uint(p.size), uint(p.size), rgb, resize.Bicubic)

	out := entity.NewImageTensor(p.size, p.size)
	b := resized.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(resized.At(x, y)).(color.RGBA)
			out.Data[i] = float32(c.R) / 255
			out.Data[i+1] = float32(c.G) / 255
			out.Data[i+2] = float32(c.B) / 255
			i += 3
		}
	}
	return out, nil
}

// toOpaqueRGBA drops alpha while keeping the un-premultiplied colour, and expands
// grayscale and paletted images to three channels.
func toOpaqueRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}
