package scanner

import (
	"image"
	"io"

	"github.com/charmbracelet/log"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/nfnt/resize"
)

// Strategy names the decode attempt that produced a result.
type Strategy int

const (
	StrategyNormal Strategy = iota
	StrategyInvertedBuiltin
	StrategyInvertedManual
)

func (s Strategy) String() string {
	switch s {
	case StrategyNormal:
		return "normal"
	case StrategyInvertedBuiltin:
		return "inverted_builtin"
	case StrategyInvertedManual:
		return "inverted_manual"
	default:
		return "unknown"
	}
}

// DecodeResult is a single successful decode. It is handed to a [Gate] and discarded.
type DecodeResult struct {
	Payload  string
	Strategy Strategy
}

// DecoderOptions configures a [Decoder].
type DecoderOptions struct {
	MaxWidth  int  // frames wider than this are downscaled first; 0 disables
	TryHarder bool // spend more time per frame looking for finder patterns
	Logger    *log.Logger
}

// pass is the mutable state owned by one decode strategy.
type pass struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]any
	canvas *image.RGBA
}

func newPass(tryHarder bool) *pass {
	hints := map[gozxing.DecodeHintType]any{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{gozxing.BarcodeFormat_QR_CODE},
	}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &pass{reader: qrcode.NewQRCodeReader(), hints: hints}
}

// decode runs the QR reader over src, reporting false on any failure.
func (p *pass) decode(src gozxing.LuminanceSource) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return "", false
	}
	defer p.reader.Reset()

	res, err := p.reader.Decode(bmp, p.hints)
	if err != nil || res == nil || res.GetText() == "" {
		return "", false
	}
	return res.GetText(), true
}

// sync resizes the canvas to w x h when the frame dimensions changed.
func (p *pass) sync(w, h int) *image.RGBA {
	if p.canvas == nil || p.canvas.Rect.Dx() != w || p.canvas.Rect.Dy() != h {
		p.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return p.canvas
}

// Decoder wraps the two QR decode strategies.
//
// DecodePrimary and DecodeInverted may run on different goroutines, but each
// method must only be called from one goroutine at a time.
type Decoder struct {
	maxWidth int
	primary  *pass
	fallback *pass
	logger   *log.Logger
}

// NewDecoder creates a [Decoder].
func NewDecoder(opts DecoderOptions) *Decoder {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Decoder{
		maxWidth: opts.MaxWidth,
		primary:  newPass(opts.TryHarder),
		fallback: newPass(opts.TryHarder),
		logger:   logger.With("component", "decoder"),
	}
}

// DecodePrimary decodes f as-is and, failing that, its inverted luminance.
func (d *Decoder) DecodePrimary(f *Frame) (res DecodeResult, ok bool) {
	defer d.absorb(&res, &ok, StrategyNormal)

	img, ok := d.prepare(f)
	if !ok {
		return DecodeResult{}, false
	}

	src := gozxing.NewLuminanceSourceFromImage(img)
	if text, ok := d.primary.decode(src); ok {
		return DecodeResult{Payload: text, Strategy: StrategyNormal}, true
	}
	if text, ok := d.primary.decode(src.Invert()); ok {
		return DecodeResult{Payload: text, Strategy: StrategyInvertedBuiltin}, true
	}
	return DecodeResult{}, false
}

// DecodeInverted inverts every colour channel of f into a reusable canvas and
// decodes the result without any further inversion.
//
// This catches light-on-dark codes whose inverted luminance still fails to
// binarize cleanly.
func (d *Decoder) DecodeInverted(f *Frame) (res DecodeResult, ok bool) {
	defer d.absorb(&res, &ok, StrategyInvertedManual)

	img, ok := d.prepare(f)
	if !ok {
		return DecodeResult{}, false
	}

	canvas := d.fallback.sync(img.Rect.Dx(), img.Rect.Dy())
	invertInto(canvas, img)

	src := gozxing.NewLuminanceSourceFromImage(canvas)
	if text, ok := d.fallback.decode(src); ok {
		return DecodeResult{Payload: text, Strategy: StrategyInvertedManual}, true
	}
	return DecodeResult{}, false
}

// prepare validates f and returns it as an RGBA image, downscaled to maxWidth if needed.
func (d *Decoder) prepare(f *Frame) (*image.RGBA, bool) {
	if !f.Valid() {
		return nil, false
	}

	img := f.Image()
	if d.maxWidth <= 0 || f.Width <= d.maxWidth {
		return img, true
	}

	scaled, ok := resize.Resize(uint(d.maxWidth), 0, img, resize.Bilinear).(*image.RGBA)
	if !ok {
		return nil, false
	}
	return scaled, true
}

// absorb turns a panic inside a decode attempt into a miss.
func (d *Decoder) absorb(res *DecodeResult, ok *bool, s Strategy) {
	if r := recover(); r != nil {
		d.logger.Debug("decode attempt panicked", "strategy", s, "panic", r)
		*res, *ok = DecodeResult{}, false
	}
}

// invertInto writes the colour-inverted pixels of src into dst. Alpha is kept.
func invertInto(dst, src *image.RGBA) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for y := range h {
		si := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < w*4; x += 4 {
			dst.Pix[di+x] = 255 - src.Pix[si+x]
			dst.Pix[di+x+1] = 255 - src.Pix[si+x+1]
			dst.Pix[di+x+2] = 255 - src.Pix[si+x+2]
			dst.Pix[di+x+3] = src.Pix[si+x+3]
		}
	}
}
