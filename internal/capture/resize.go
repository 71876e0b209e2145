package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// maxSnapshotDim caps the longer image edge before the snapshot is sent to
// the vision API, which bills by image size. Meter digits stay legible well
// below this.
const maxSnapshotDim = 1024

// downscaleSnapshot re-encodes the snapshot as JPEG with its longer edge
// capped at maxSnapshotDim. Images already small enough, or that fail to
// decode, pass through untouched.
func downscaleSnapshot(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longer := w
	if h > longer {
		longer = h
	}
	if longer <= maxSnapshotDim {
		return data
	}

	scale := float64(maxSnapshotDim) / float64(longer)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return data
	}
	return buf.Bytes()
}
