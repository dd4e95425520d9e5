package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/siloforge/siloforge-engine/pkg/models"
)

// Fingerprint hashes the audit-relevant dataset of a silo: the raw
// role/position rows and, for every internal occurrence, its identity, anchor,
// context, bucket and last-modified marker. The encoding is canonical (fields
// in fixed order, records sorted), so storage ordering never changes the hash.
func Fingerprint(entries []*models.HierarchyEntry, occurrences []*models.LinkOccurrence) string {
	lines := make([]string, 0, len(entries)+len(occurrences))

	for _, e := range entries {
		pos := "-"
		if e.Position != nil {
			pos = fmt.Sprintf("%g", *e.Position)
		}
		lines = append(lines, fmt.Sprintf("h|%s|%s|%s", e.PageID, e.Role, pos))
	}

	for _, occ := range occurrences {
		if !occ.IsInternal() {
			continue
		}
		lines = append(lines, fmt.Sprintf("o|%s|%s|%s|%s|%s|%s|%d",
			occ.ID, occ.SourceID, occ.TargetID, occ.Anchor, occ.Context,
			occ.Bucket, occ.SyncedAt.UnixNano()))
	}

	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
