package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guilance/src/lib"
	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/types"
	"guilance/src/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const ticketURLTTL = 50 * time.Minute

// Uploader stores a local file and returns a URL for it. aws.S3UploadAsset satisfies it.
type Uploader func(ctx context.Context, name string, path string, contentType string) (*string, error)

type TicketFile struct {
	TicketID string `json:"ticket_id"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"-"`
}

// TicketIssuer renders the QR e-ticket of a confirmed registration.
type TicketIssuer struct {
	store   repositories.Store
	key     []byte
	tempDir string
	upload  Uploader
	cache   *redis.Client
}

func NewTicketIssuer(store repositories.Store, key []byte, tempDir string, upload Uploader, cache *redis.Client) *TicketIssuer {
	return &TicketIssuer{store: store, key: key, tempDir: tempDir, upload: upload, cache: cache}
}

func (t *TicketIssuer) Issue(ctx context.Context, registrationID, userID uint) (*TicketFile, error) {
	registration, err := t.store.Registrations().FindByID(ctx, registrationID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && registration.UserID != userID) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	if registration.Status != types.REGISTRATION_CONFIRMED && registration.Status != types.REGISTRATION_ATTENDED {
		return nil, ErrTicketUnavailable
	}
	ticketID := registration.TicketID.String()
	if url := t.cachedURL(ctx, ticketID); url != "" {
		return &TicketFile{TicketID: ticketID, URL: url}, nil
	}

	path, err := t.render(registration)
	if err != nil {
		return nil, Internal(err)
	}
	file := &TicketFile{TicketID: ticketID, Path: path}
	if t.upload == nil {
		return file, nil
	}
	url, err := t.upload(ctx, fmt.Sprintf("tickets/%s.jpeg", ticketID), path, "image/jpeg")
	if err != nil {
		zap.L().Warn("ticket upload failed, serving local file", zap.String("ticket_id", ticketID), zap.Error(err))
		return file, nil
	}
	file.URL = *url
	if t.cache != nil {
		if err := t.cache.SetEx(ctx, lib.TicketURLKey(ticketID), file.URL, ticketURLTTL).Err(); err != nil {
			zap.L().Warn("failed to cache ticket url", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}
	return file, nil
}

func (t *TicketIssuer) cachedURL(ctx context.Context, ticketID string) string {
	if t.cache == nil {
		return ""
	}
	url, err := t.cache.Get(ctx, lib.TicketURLKey(ticketID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("ticket cache lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return ""
	}
	return url
}

func (t *TicketIssuer) render(registration *models.Registration) (string, error) {
	ticketID := registration.TicketID.String()
	payload := utils.TicketPayload(ticketID, registration.EventID, registration.UserID)
	if t.key != nil {
		encrypted, err := utils.EncryptMessage(t.key, payload)
		if err != nil {
			return "", fmt.Errorf("encrypt ticket payload: %w", err)
		}
		payload = encrypted
	}
	return lib.GenerateQRCode(payload, t.tempDir, ticketID)
}
