package services

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"filerepo/config"

	"github.com/disintegration/imaging"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// IsImageFile reports whether a stored file can be decoded for a thumbnail.
func IsImageFile(fileName string, mimeType string) bool {
	if imageExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return true
	}
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return true
	}
	return false
}

type ThumbnailService interface {
	Generate(src io.Reader, dst io.Writer) error
}

type thumbnailService struct {
	width   int
	height  int
	quality int
}

func NewThumbnailService(cfg config.ThumbnailConfig) ThumbnailService {
	return &thumbnailService{width: cfg.Width, height: cfg.Height, quality: cfg.Quality}
}

// Generate scales the image to fit the configured box and writes it as JPEG.
func (s *thumbnailService) Generate(src io.Reader, dst io.Writer) error {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Fit(img, s.width, s.height, imaging.Lanczos)
	return imaging.Encode(dst, thumb, imaging.JPEG, imaging.JPEGQuality(s.quality))
}
