// Package storage keeps uploaded product images, either on local disk or in a
// NATS JetStream object store bucket.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// PublicPrefix is the URL path images are served under.
const PublicPrefix = "/uploads/"

var (
	ErrImageNotFound    = errors.New("image not found")
	ErrUnsupportedImage = errors.New("unsupported image format, expected jpg, png or webp")
	ErrInvalidName      = errors.New("invalid image name")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

type ImageStore interface {
	// Save stores the bytes under a fresh name and returns the public path.
	Save(ctx context.Context, data []byte) (string, error)
	Open(ctx context.Context, name string) (*Image, error)
}

// sniff detects the image type from content, ignoring whatever the client
// claimed, and returns a generated object name.
func sniff(data []byte) (name, contentType string, err error) {
	mt := mimetype.Detect(data)
	for allowed, ext := range allowedTypes {
		if mt.Is(allowed) {
			return uuid.NewString() + ext, allowed, nil
		}
	}
	return "", "", ErrUnsupportedImage
}

func validName(name string) bool {
	return name != "" && name == path.Base(name) && !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

func contentTypeFor(name string) string {
	for ct, ext := range allowedTypes {
		if strings.HasSuffix(name, ext) {
			return ct
		}
	}
	return "application/octet-stream"
}
