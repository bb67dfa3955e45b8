package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp" // registers the WebP decoder with image.Decode

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// DefaultMaxFileSize is 16 MiB.
const DefaultMaxFileSize int64 = 16 << 20

const (
	jpegQuality   = 85
	thumbnailSize = 300
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MediaPurger removes media rows that are no longer referenced. The
// production implementation enqueues a background task.
type MediaPurger interface {
	PurgeMedia(ctx context.Context, ids []uint) error
}

// MediaService re-encodes uploaded images and stores them as base64 rows.
type MediaService struct {
	repo        repository.MediaRepository
	maxFileSize int64
	now         func() time.Time
}

func NewMediaService(repo repository.MediaRepository, maxFileSize int64) *MediaService {
	if repo == nil {
		panic("MediaRepository cannot be nil for MediaService")
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &MediaService{repo: repo, maxFileSize: maxFileSize, now: time.Now}
}

// MaxFileSize is the largest accepted upload in bytes.
func (s *MediaService) MaxFileSize() int64 { return s.maxFileSize }

// Validate checks size and content type. The type is sniffed from the bytes
// when the client did not send one.
func (s *MediaService) Validate(u *Upload) error {
	if u == nil || len(u.Data) == 0 {
		return ErrNoFile
	}
	if int64(len(u.Data)) > s.maxFileSize {
		return ErrFileTooLarge
	}
	ct := u.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(u.Data)
	}
	if !allowedImageTypes[ct] {
		return ErrUnsupportedImage
	}
	return nil
}

func (s *MediaService) decode(u *Upload) (image.Image, error) {
	if err := s.Validate(u); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(u.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, invalidf("could not decode image: %v", err)
	}
	return img, nil
}

func (s *MediaService) store(ctx context.Context, img image.Image, filename string) (*domain.Media, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg %s: %w", filename, err)
	}
	m := &domain.Media{
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: "image/jpeg",
		Filename: filename,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// StoreNotificationImage saves the re-encoded image and a square thumbnail
// and returns their media paths.
func (s *MediaService) StoreNotificationImage(ctx context.Context, u *Upload) (imagePath, thumbnailPath string, err error) {
	img, err := s.decode(u)
	if err != nil {
		return "", "", err
	}
	stamp := s.now().UnixMilli()
	full, err := s.store(ctx, img, fmt.Sprintf("notif-%d.jpg", stamp))
	if err != nil {
		logrus.WithError(err).Error("Failed to store notification image")
		return "", "", ErrInternalServer
	}
	thumb, err := s.store(ctx, imaging.Fill(img, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos),
		fmt.Sprintf("thumb-%d.jpg", stamp))
	if err != nil {
		logrus.WithError(err).Error("Failed to store notification thumbnail")
		// Best effort: the full image row is orphaned otherwise.
		_ = s.repo.DeleteByIDs(ctx, []uint{full.ID})
		return "", "", ErrInternalServer
	}
	return domain.MediaPath(full.ID), domain.MediaPath(thumb.ID), nil
}

// StoreProfilePicture saves a square 300x300 crop and returns its media path.
func (s *MediaService) StoreProfilePicture(ctx context.Context, userID uint, u *Upload) (string, error) {
	img, err := s.decode(u)
	if err != nil {
		return "", err
	}
	m, err := s.store(ctx, imaging.Fill(img, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos),
		fmt.Sprintf("profile-%d-%d.jpg", userID, s.now().UnixMilli()))
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to store profile picture")
		return "", ErrInternalServer
	}
	return domain.MediaPath(m.ID), nil
}

// Get returns the media row and its decoded bytes.
func (s *MediaService) Get(ctx context.Context, id uint) (*domain.Media, []byte, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, nil, ErrMediaNotFound
		}
		logrus.WithField("media_id", id).WithError(err).Error("Failed to load media")
		return nil, nil, ErrInternalServer
	}
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		logrus.WithField("media_id", id).WithError(err).Error("Stored media is not valid base64")
		return nil, nil, ErrInternalServer
	}
	return m, data, nil
}

// Purge deletes media rows directly. The background worker calls it.
func (s *MediaService) Purge(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.DeleteByIDs(ctx, ids)
}
