package ecommerce

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// transparentSquare returns a PNG whose left half is transparent and right half red
func transparentSquare(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for x := size / 2; x < size; x++ {
		for y := 0; y < size; y++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFlattenOnBackground(t *testing.T) {
	out, err := FlattenOnBackground(transparentSquare(t, 10), NeutralBackground, 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	r, g, b, a := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(120), r>>8)
	assert.Equal(t, uint32(120), g>>8)
	assert.Equal(t, uint32(120), b>>8)
	assert.Equal(t, uint32(255), a>>8)

	r, _, _, _ = img.At(8, 1).RGBA()
	assert.Equal(t, uint32(255), r>>8)
}

func TestFlattenOnBackground_FitsLargeImages(t *testing.T) {
	out, err := FlattenOnBackground(transparentSquare(t, 40), NeutralBackground, 20)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestFlattenOnBackground_InvalidImage(t *testing.T) {
	_, err := FlattenOnBackground([]byte("not an image"), NeutralBackground, 0)
	assert.ErrorIs(t, err, integration.ErrMalformedData)
}

func TestImageProcessor_Attachment(t *testing.T) {
	data := transparentSquare(t, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer server.Close()

	p := NewImageProcessor(time.Second, 0, nil)

	encoded, err := p.Attachment(context.Background(), server.URL+"/img.png")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)

	_, err = p.Attachment(context.Background(), server.URL+"/missing.png")
	assert.ErrorIs(t, err, integration.ErrRemoteAPI)
}
