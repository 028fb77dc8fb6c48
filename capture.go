package framegraph

import (
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// Capture reads a texture resource back into an image.RGBA. The resource
// must be allocated and four bytes per pixel; the backend device must
// support readback (the headless device does, real GPU backends may not).
// Capture a frame output after Execute completed but before the handle
// goes stale, i.e. on a persistent resource or inside the final pass.
func Capture(table *resource.Table, device backend.Device, h resource.Handle) (*image.RGBA, error) {
	res, err := table.Get(h)
	if err != nil {
		return nil, fmt.Errorf("framegraph: capture: %w", err)
	}
	if res.Desc.Kind != backend.KindTexture {
		return nil, fmt.Errorf("framegraph: capture: %q is not a texture", res.Desc.Label)
	}

	rb, ok := device.(backend.Readbacker)
	if !ok {
		return nil, fmt.Errorf("framegraph: capture: device %q does not support readback", device.Name())
	}
	data, err := rb.Readback(res.Obj)
	if err != nil {
		return nil, fmt.Errorf("framegraph: capture %q: %w", res.Desc.Label, err)
	}

	w, hgt := int(res.Desc.Width), int(res.Desc.Height)
	want := w * hgt * 4
	if len(data) < want {
		return nil, fmt.Errorf("framegraph: capture %q: readback returned %d bytes, need %d",
			res.Desc.Label, len(data), want)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	copy(img.Pix, data[:want])
	return img, nil
}

// SavePNG writes an image to a PNG file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}

// Thumbnail scales an image down to fit within maxDim on its longer
// side, preserving aspect ratio. Images already within bounds are
// returned unchanged.
func Thumbnail(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var tw, th int
	if w >= h {
		tw = maxDim
		th = h * maxDim / w
	} else {
		th = maxDim
		tw = w * maxDim / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
