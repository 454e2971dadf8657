package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// DirectoryService is the Admin Directory read path.
type DirectoryService struct {
	api      outbound.DirectoryAPI
	sessions *SessionService
	logger   *slog.Logger
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(api outbound.DirectoryAPI, sessions *SessionService, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{
		api:      api,
		sessions: sessions,
		logger:   logger,
	}
}

// FetchPage fetches the 1-indexed page n. Pages below 1 are fetched as 1.
// A rejected session is cleared and session.ErrUnauthorized returned.
func (s *DirectoryService) FetchPage(ctx context.Context, n int) (*directory.Listing, error) {
	if n < 1 {
		n = 1
	}

	page, err := s.api.ListUsers(ctx, n)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			s.sessions.Invalidate(session.AreaAdmin)
			return nil, session.ErrUnauthorized
		}
		s.logger.Error("failed to fetch user directory", "page", n, "error", err)
		return nil, fmt.Errorf("fetch directory page %d: %w", n, err)
	}

	s.logger.Debug("fetched user directory",
		"page", page.Number,
		"entries", len(page.Entries),
		"total_pages", page.TotalPages,
	)
	return directory.NewListing(*page), nil
}
