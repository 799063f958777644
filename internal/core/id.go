package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// chunkNamespace scopes the deterministic chunk UUIDs. Fixed forever:
// changing it would break upsert idempotency across re-indexing runs.
var chunkNamespace = uuid.MustParse("8b2e1d4a-6f3c-4b7e-9a1d-5c8f2e0b4a6d")

var nonKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// ChunkID derives the chunk identifier as a pure function of
// (repo, file path, name, start line). Identical inputs always produce the
// same id, which makes storage an upsert rather than an accumulate.
// The result is a UUIDv5 string, safe as a vector-store point id.
func ChunkID(repo, filePath, name string, startLine int) string {
	seed := fmt.Sprintf("%s|%s|%s|%d", repo, filePath, name, startLine)
	return uuid.NewSHA1(chunkNamespace, []byte(seed)).String()
}

// ChunkKey is the human-readable form of the identity tuple, normalized to
// be filesystem and key safe. Stored alongside the chunk for debugging.
func ChunkKey(repo, filePath, name string, startLine int) string {
	raw := fmt.Sprintf("%s_%s_%s_%d", repo, filePath, name, startLine)
	key := nonKeyChars.ReplaceAllString(raw, "_")
	return strings.Trim(key, "_")
}

// CollectionName derives the per-(repo, branch) collection name,
// e.g. "github_owner_repo_main".
func CollectionName(repo, branch string) string {
	raw := fmt.Sprintf("github_%s_%s", repo, branch)
	return strings.Trim(nonKeyChars.ReplaceAllString(raw, "_"), "_")
}
