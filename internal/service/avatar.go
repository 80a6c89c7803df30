package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/storage"
	"github.com/speedystriders/tracker/internal/validation"
)

var ErrAvatarStorageDisabled = errors.New("avatar uploads are not configured")

// AvatarService stores uploaded avatars in object storage. The racer document
// keeps an app path (/avatars/...) that redirects to a presigned URL.
type AvatarService struct {
	storage storage.Storage
	racers  *RacerService
}

// NewAvatarService accepts a nil storage; uploads are then rejected.
func NewAvatarService(storage storage.Storage, racers *RacerService) *AvatarService {
	return &AvatarService{
		storage: storage,
		racers:  racers,
	}
}

func (s *AvatarService) Enabled() bool {
	return s.storage != nil
}

// Upload validates the image, stores it and points the racer at it.
func (s *AvatarService) Upload(ctx context.Context, racerID string, file multipart.File, header *multipart.FileHeader) (*model.Racer, error) {
	if s.storage == nil {
		return nil, ErrAvatarStorageDisabled
	}

	contentType, err := validation.ValidateFile(header, validation.ImageConstraints)
	if err != nil {
		return nil, invalid("%v", err)
	}

	racer, err := s.racers.ByID(ctx, racerID)
	if err != nil {
		return nil, err
	}
	previous := racer.Avatar

	ext := strings.ToLower(filepath.Ext(header.Filename))
	avatarPath := fmt.Sprintf("%s%s/%s%s", validation.AvatarPathPrefix, racer.ID, uuid.NewString(), ext)
	key := objectKey(avatarPath)

	err = s.storage.Save(ctx, key, file, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	updated, err := s.racers.SetAvatar(ctx, racer.ID, avatarPath)
	if err != nil {
		delErr := s.storage.Delete(ctx, key)
		if delErr != nil {
			slog.Error("failed to delete avatar during cleanup", "error", delErr, "key", key)
		}
		return nil, err
	}

	s.Remove(ctx, previous)
	return updated, nil
}

// URL resolves an avatar path to a readable URL.
func (s *AvatarService) URL(ctx context.Context, avatarPath string) (string, error) {
	if s.storage == nil {
		return "", ErrAvatarStorageDisabled
	}
	if !isStoredAvatar(avatarPath) {
		return "", storage.ErrObjectNotFound
	}
	return s.storage.URL(ctx, objectKey(avatarPath))
}

// Remove deletes a stored avatar; inline and external avatars are ignored.
// Failures are logged only.
func (s *AvatarService) Remove(ctx context.Context, avatarPath string) {
	if s.storage == nil || !isStoredAvatar(avatarPath) {
		return
	}

	err := s.storage.Delete(ctx, objectKey(avatarPath))
	if err != nil {
		slog.Error("failed to delete avatar", "error", err, "path", avatarPath)
	}
}

func isStoredAvatar(avatarPath string) bool {
	return strings.HasPrefix(avatarPath, validation.AvatarPathPrefix) && !strings.Contains(avatarPath, "..")
}

// objectKey maps "/avatars/<racer>/<file>" to the bucket key "avatars/<racer>/<file>".
func objectKey(avatarPath string) string {
	return strings.TrimPrefix(avatarPath, "/")
}
