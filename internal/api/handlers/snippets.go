package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/pkarls/sonolog/internal/repository"
	"github.com/pkarls/sonolog/internal/storage"
	"github.com/pkarls/sonolog/pkg/models"
)

// SnippetHandler handles anomaly snippet HTTP requests
type SnippetHandler struct {
	repo  repository.SnippetRepository
	store storage.SnippetStore
}

// NewSnippetHandler creates a new snippet handler
func NewSnippetHandler(repo repository.SnippetRepository, store storage.SnippetStore) *SnippetHandler {
	return &SnippetHandler{repo: repo, store: store}
}

// ListSnippets returns snippet metadata, newest first
func (h *SnippetHandler) ListSnippets(ctx context.Context, req *models.ListSnippetsRequest) (*models.ListSnippetsResponse, error) {
	snippets, err := h.repo.List(ctx, req.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to query snippets", err)
	}

	resp := &models.ListSnippetsResponse{}
	resp.Body.Snippets = make([]models.Snippet, len(snippets))
	for i, s := range snippets {
		resp.Body.Snippets[i] = *s
	}
	return resp, nil
}

// GetSnippetURL returns a pre-signed download URL for one snippet's audio
func (h *SnippetHandler) GetSnippetURL(ctx context.Context, req *models.GetSnippetURLRequest) (*models.GetSnippetURLResponse, error) {
	snippet, err := h.repo.GetByID(ctx, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error404NotFound("Snippet not found", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to query snippet", err)
	}

	url, expiry, err := h.store.GenerateDownloadURL(ctx, snippet.ObjectKey)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate download URL", err)
	}

	resp := &models.GetSnippetURLResponse{}
	resp.Body.URL = url
	resp.Body.ExpiresIn = int(expiry.Seconds())
	return resp, nil
}

// DeleteSnippet deletes one snippet's audio and metadata
func (h *SnippetHandler) DeleteSnippet(ctx context.Context, req *models.DeleteSnippetRequest) (*models.DeleteSnippetResponse, error) {
	snippet, err := h.repo.GetByID(ctx, req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error404NotFound("Snippet not found", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to query snippet", err)
	}

	// Object first: a dangling row is recoverable, an orphaned object is not.
	if err := h.store.DeleteObject(ctx, snippet.ObjectKey); err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete snippet audio", err)
	}

	if err := h.repo.Delete(ctx, req.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error500InternalServerError("Failed to delete snippet", err)
	}

	log.Info().Int64("snippetID", req.ID).Str("objectKey", snippet.ObjectKey).Msg("Snippet deleted")

	resp := &models.DeleteSnippetResponse{}
	resp.Body.Message = "Snippet deleted"
	return resp, nil
}
