package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareDownscalesWideImage(t *testing.T) {
	res, err := Prepare(encodePNG(t, 2560, 1440))
	require.NoError(t, err)

	assert.Equal(t, MaxWidth, res.Width)
	assert.Equal(t, 720, res.Height, "пропорции должны сохраниться")

	// Результат — валидный JPEG заявленных размеров
	decoded, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, MaxWidth, decoded.Bounds().Dx())
}

func TestPrepareKeepsSmallImageSize(t *testing.T) {
	res, err := Prepare(encodePNG(t, 640, 480))
	require.NoError(t, err)

	assert.Equal(t, 640, res.Width)
	assert.Equal(t, 480, res.Height)

	// Перекодирование в JPEG происходит всегда, даже без уменьшения
	_, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestPrepareReencodesJPEGInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1500, 1000))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	res, err := Prepare(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, MaxWidth, res.Width)
}

func TestPrepareRejectsGarbage(t *testing.T) {
	_, err := Prepare([]byte("это не изображение"))
	assert.Error(t, err)
}
