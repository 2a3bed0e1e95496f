// Command genplaceholder generates the placeholder cover art PNGs used when
// no artwork could be found for an album. The motif is a vinyl record on a
// slate background. Run from the repository root: go run ./tools/genplaceholder
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/vector"
)

// kappa is the cubic bezier control-point offset for a quarter circle.
const kappa = 0.5522847498

var (
	bgColor     = color.NRGBA{30, 41, 59, 255}   // slate-800
	discColor   = color.NRGBA{15, 23, 42, 255}   // slate-900
	grooveColor = color.NRGBA{51, 65, 85, 255}   // slate-700
	labelColor  = color.NRGBA{99, 102, 241, 255} // indigo-500
)

func main() {
	outDir := filepath.Join("web", "static", "img")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create dir: %v\n", err)
		os.Exit(1)
	}

	targets := []struct {
		name string
		size int
	}{
		{"placeholder-100.png", 100},
		{"placeholder-300.png", 300},
		{"placeholder-600.png", 600},
	}

	for _, t := range targets {
		img := renderCover(t.size)
		p := filepath.Join(outDir, t.name)
		f, err := os.Create(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", p, err)
			os.Exit(1)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "encode %s: %v\n", p, err)
			os.Exit(1)
		}
		f.Close()
		fmt.Printf("generated %s (%dx%d)\n", p, t.size, t.size)
	}
}

func renderCover(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, bgColor)
		}
	}

	c := float64(size) / 2.0

	// Disc, a groove ring, label, and spindle hole, largest first.
	fillCircle(img, c, c, 0.42*float64(size), discColor)
	ringCircle(img, c, c, 0.30*float64(size), 0.008*float64(size), grooveColor)
	ringCircle(img, c, c, 0.22*float64(size), 0.008*float64(size), grooveColor)
	fillCircle(img, c, c, 0.14*float64(size), labelColor)
	fillCircle(img, c, c, 0.02*float64(size), bgColor)

	return img
}

// fillCircle rasterizes a filled circle of radius r centered at (cx, cy).
func fillCircle(img *image.NRGBA, cx, cy, r float64, col color.NRGBA) {
	size := img.Bounds().Dx()
	var ras vector.Rasterizer
	ras.Reset(size, size)
	circlePath(&ras, cx, cy, r)
	ras.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{})
}

// ringCircle draws a circle outline of the given stroke width by filling the
// outer circle and carving the inner one back out with an even-odd pair.
func ringCircle(img *image.NRGBA, cx, cy, r, width float64, col color.NRGBA) {
	size := img.Bounds().Dx()
	var ras vector.Rasterizer
	ras.Reset(size, size)
	circlePath(&ras, cx, cy, r+width/2)
	// Reverse winding cancels the inner disc.
	circlePathCCW(&ras, cx, cy, r-width/2)
	ras.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{})
}

// circlePath appends a clockwise circle approximated by four cubic beziers.
func circlePath(r *vector.Rasterizer, cx, cy, rad float64) {
	k := kappa * rad
	r.MoveTo(float32(cx+rad), float32(cy))
	r.CubeTo(float32(cx+rad), float32(cy+k), float32(cx+k), float32(cy+rad), float32(cx), float32(cy+rad))
	r.CubeTo(float32(cx-k), float32(cy+rad), float32(cx-rad), float32(cy+k), float32(cx-rad), float32(cy))
	r.CubeTo(float32(cx-rad), float32(cy-k), float32(cx-k), float32(cy-rad), float32(cx), float32(cy-rad))
	r.CubeTo(float32(cx+k), float32(cy-rad), float32(cx+rad), float32(cy-k), float32(cx+rad), float32(cy))
	r.ClosePath()
}

// circlePathCCW appends the same circle with counter-clockwise winding.
func circlePathCCW(r *vector.Rasterizer, cx, cy, rad float64) {
	k := kappa * rad
	r.MoveTo(float32(cx+rad), float32(cy))
	r.CubeTo(float32(cx+rad), float32(cy-k), float32(cx+k), float32(cy-rad), float32(cx), float32(cy-rad))
	r.CubeTo(float32(cx-k), float32(cy-rad), float32(cx-rad), float32(cy-k), float32(cx-rad), float32(cy))
	r.CubeTo(float32(cx-rad), float32(cy+k), float32(cx-k), float32(cy+rad), float32(cx), float32(cy+rad))
	r.CubeTo(float32(cx+k), float32(cy+rad), float32(cx+rad), float32(cy+k), float32(cx+rad), float32(cy))
	r.ClosePath()
}
