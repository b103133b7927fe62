package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
)

// ErrDecode indicates the input bytes could not be decoded as an image.
var ErrDecode = errors.New("cannot decode image")

// Image decodes raw image bytes and converts them into a model input tensor
// of shape (1, height, width, 3): RGB channel order, float32 values scaled
// to [0, 1]. The source color mode does not matter; grayscale, RGBA and
// palette images are all converted to 3-channel RGB.
func Image(data []byte, height, width int) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	tensor := make([]float32, height*width*3)
	bounds := resized.Bounds()

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()

			// RGBA returns 16-bit channels; shift down to 8-bit before
			// normalizing so the values match a uint8-decoded image.
			tensor[i] = float32(r>>8) / 255.0
			tensor[i+1] = float32(g>>8) / 255.0
			tensor[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}

	return tensor, nil
}
