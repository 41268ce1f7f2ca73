package ecommerce

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

const (
	// maxImageSize bounds a downloaded source image (20MB)
	maxImageSize = 20 * 1024 * 1024
	// defaultMaxImageDimension is the longest side kept before uploading
	defaultMaxImageDimension = 2048
)

// NeutralBackground is the grey images are flattened onto
var NeutralBackground = color.NRGBA{R: 120, G: 120, B: 120, A: 255}

// ImageProcessor downloads Storefront images and prepares them as base64 PNG
// attachments flattened onto a neutral background
type ImageProcessor struct {
	httpClient   *http.Client
	background   color.Color
	maxDimension int
	logger       *zap.Logger
}

// NewImageProcessor creates an image processor. maxDimension <= 0 uses the default.
func NewImageProcessor(timeout time.Duration, maxDimension int, logger *zap.Logger) *ImageProcessor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxDimension <= 0 {
		maxDimension = defaultMaxImageDimension
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProcessor{
		httpClient:   &http.Client{Timeout: timeout},
		background:   NeutralBackground,
		maxDimension: maxDimension,
		logger:       logger.Named("images"),
	}
}

// Attachment downloads src and returns the processed image as base64 PNG
func (p *ImageProcessor) Attachment(ctx context.Context, src string) (string, error) {
	data, err := p.download(ctx, src)
	if err != nil {
		return "", err
	}
	out, err := FlattenOnBackground(data, p.background, p.maxDimension)
	if err != nil {
		return "", err
	}
	p.logger.Debug("Prepared image attachment",
		zap.String("src", src),
		zap.Int("input_bytes", len(data)),
		zap.Int("output_bytes", len(out)),
	)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (p *ImageProcessor) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image url %q: %v", integration.ErrMalformedData, src, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", integration.ErrTransientNetwork, src, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image: %v", integration.ErrTransientNetwork, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &integration.RemoteAPIError{
			Platform:   integration.PlatformCodeTiendanube,
			Method:     http.MethodGet,
			Path:       src,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBodySize),
		}
	}
	return data, nil
}

// FlattenOnBackground decodes an image, fits it within maxDimension, paints it
// over an opaque background and encodes the result as PNG
func FlattenOnBackground(data []byte, background color.Color, maxDimension int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", integration.ErrMalformedData, err)
	}

	bounds := img.Bounds()
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
		bounds = img.Bounds()
	}

	canvas := imaging.New(bounds.Dx(), bounds.Dy(), background)
	flattened := imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flattened, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
