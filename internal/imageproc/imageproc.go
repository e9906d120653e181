// Пакет imageproc подготавливает изображения перед загрузкой в хранилище:
// уменьшение до фиксированной максимальной ширины и перекодирование в JPEG
// с фиксированным качеством. Преобразование одно и то же для снимков
// с камеры и фотографий из галереи, настроек у него нет.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // регистрация декодера PNG

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxWidth максимальная ширина изображения после обработки
	MaxWidth = 1280
	// JPEGQuality качество перекодирования
	JPEGQuality = 80
)

// Result содержит обработанное изображение и его размеры
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Prepare декодирует изображение, уменьшает его до MaxWidth по ширине
// с сохранением пропорций и перекодирует в JPEG
func Prepare(data []byte) (*Result, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение: %w", err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > MaxWidth {
		scaled := image.NewRGBA(image.Rect(0, 0, MaxWidth, height*MaxWidth/width))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, xdraw.Over, nil)
		src = scaled
		width = scaled.Bounds().Dx()
		height = scaled.Bounds().Dy()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("не удалось перекодировать изображение: %w", err)
	}

	return &Result{
		Data:   buf.Bytes(),
		Width:  width,
		Height: height,
	}, nil
}
