package project

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"github.com/bobarin/ugcstudio/internal/models"
	_ "golang.org/x/image/webp"
)

var ErrNoAsset = errors.New("asset missing")

// DecodeDataURL splits a data: URL into its payload and media type.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", fmt.Errorf("not a data URL")
	}
	header, payload, ok := strings.Cut(dataURL[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("data URL has no payload separator")
	}

	mimeType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(header, ";") {
		switch {
		case i == 0 && part != "":
			mimeType = part
		case part == "base64":
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("failed to decode base64 payload: %w", err)
			}
		}
		return data, mimeType, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to unescape payload: %w", err)
	}
	return []byte(unescaped), mimeType, nil
}

// EncodeDataURL is the inverse of DecodeDataURL for binary payloads.
func EncodeDataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeImage decodes an uploaded asset into an image. A nil asset returns ErrNoAsset.
func DecodeImage(asset *models.UploadedAsset) (image.Image, error) {
	if asset == nil || asset.DataURL == "" {
		return nil, ErrNoAsset
	}
	data, _, err := DecodeDataURL(asset.DataURL)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", asset.Name, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("asset %q: failed to decode image: %w", asset.Name, err)
	}
	return img, nil
}
