// Package search exposes ranked semantic code search over the indexed
// collections.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/indexer"
)

// Searcher is the ranked retrieval surface of the vector store.
type Searcher interface {
	Search(ctx context.Context, query string, repos []string, userID string, k int) ([]core.SearchResult, error)
}

// Service validates and normalizes search requests before handing them to
// the store.
type Service struct {
	store  Searcher
	logger *slog.Logger
}

// NewService creates a search Service.
func NewService(store Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Search runs query against the user's repos and returns the global top-k.
// Repos may be given as owner/name pairs or GitHub URLs; duplicates are
// collapsed. Repos the user cannot read contribute nothing.
func (s *Service) Search(ctx context.Context, query string, repos []string, userID string, k int) ([]core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	normalized, err := normalizeRepos(repos)
	if err != nil {
		return nil, err
	}

	results, err := s.store.Search(ctx, query, normalized, userID, k)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search completed",
		"user", userID, "repos", len(normalized), "results", len(results))
	return results, nil
}

// normalizeRepos maps each entry to owner/name and drops duplicates while
// preserving order.
func normalizeRepos(repos []string) ([]string, error) {
	seen := make(map[string]bool, len(repos))
	out := make([]string, 0, len(repos))
	for _, r := range repos {
		owner, name, err := indexer.ParseRepoURL(r)
		if err != nil {
			return nil, err
		}
		full := owner + "/" + name
		if seen[full] {
			continue
		}
		seen[full] = true
		out = append(out, full)
	}
	return out, nil
}
