package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"snsu-notification/internal/service"
)

type recordingPurger struct {
	mu  sync.Mutex
	ids [][]uint
}

func (p *recordingPurger) PurgeMedia(_ context.Context, ids []uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, append([]uint(nil), ids...))
	return nil
}

func pngUpload(t *testing.T, w, h int) *service.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &service.Upload{Filename: "poster.png", ContentType: "image/png", Data: buf.Bytes()}
}
