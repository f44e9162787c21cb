// Package imaging - RGB preprocessing for the pose network input.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"gorgonia.org/tensor"
)

// DecodeRGB decodes raw JPEG/PNG bytes into an image.
func DecodeRGB(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ResizeRGB scales an image to a square size x size frame with bilinear
// interpolation.
func ResizeRGB(img image.Image, size int) image.Image {
	return resize.Resize(uint(size), uint(size), img, resize.Bilinear)
}

// ToTensor converts an image into an (H, W, 3) float32 tensor with channel
// values in [0, 255], the range the backbone's mean subtraction expects.
func ToTensor(img image.Image) *tensor.Dense {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	data := make([]float32, h*w*3)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data[i] = float32(r >> 8)
			data[i+1] = float32(g >> 8)
			data[i+2] = float32(b >> 8)
			i += 3
		}
	}

	return tensor.New(tensor.WithShape(h, w, 3), tensor.WithBacking(data))
}

// StackRGB stacks equally sized images into a (B, H, W, 3) batch tensor.
func StackRGB(imgs []image.Image) (*tensor.Dense, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("cannot stack an empty image list")
	}

	h := imgs[0].Bounds().Dy()
	w := imgs[0].Bounds().Dx()
	data := make([]float32, 0, len(imgs)*h*w*3)

	for i, img := range imgs {
		if img.Bounds().Dy() != h || img.Bounds().Dx() != w {
			return nil, fmt.Errorf("image %d is %dx%d, want %dx%d", i, img.Bounds().Dx(), img.Bounds().Dy(), w, h)
		}
		data = append(data, ToTensor(img).Data().([]float32)...)
	}

	return tensor.New(tensor.WithShape(len(imgs), h, w, 3), tensor.WithBacking(data)), nil
}
