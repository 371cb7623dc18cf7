package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/igscheduler/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "png": {},
}

type MediaService interface {
	Upload(ctx context.Context, file []byte) (*transfer.MediaUpload, error)
}

type mediaService struct {
	storage ObjectStorage
}

func NewMediaService(storage ObjectStorage) MediaService {
	return &mediaService{storage: storage}
}

// Upload sniffs the file type, stores the file under a random key keeping its
// extension, and returns the public URL to reference from a post.
func (s *mediaService) Upload(ctx context.Context, file []byte) (*transfer.MediaUpload, error) {
	if len(file) == 0 {
		return nil, ErrEmptyUpload
	}

	kind, err := filetype.Match(file)
	if err != nil || kind == types.Unknown {
		return nil, ErrUnsupportedFile
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := id + "." + kind.Extension

	if err := s.storage.Upload(ctx, key, file, kind.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	return &transfer.MediaUpload{
		Key:  key,
		URL:  s.storage.PublicURL(key),
		MIME: kind.MIME.Value,
	}, nil
}
