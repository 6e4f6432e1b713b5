package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/gzip"

	"intakedash/internal/models"
)

// LegacyOrganizationID names the only slice of a single-organization bundle
// when the metadata roster is empty
const LegacyOrganizationID = "default"

// isGzip reports whether data starts with the gzip magic bytes. Hosts that
// apply Content-Encoding hand back already-inflated JSON under the .gz name.
func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// inflate decompresses a gzip payload
func inflate(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// decodeMetadata parses metadata.json
func decodeMetadata(data []byte) (*models.SnapshotMetadata, error) {
	var meta models.SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrMalformedSnapshot, err)
	}
	return &meta, nil
}

// decodeBundle parses the data bundle, inflating it first if needed
func decodeBundle(data []byte) (*models.SnapshotBundle, error) {
	if isGzip(data) {
		inflated, err := inflate(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", ErrMalformedSnapshot, err)
		}
		data = inflated
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	_, multi := top["by_org"]
	_, legacy := top["organization"]
	if !multi && !legacy {
		return nil, fmt.Errorf("%w: neither by_org nor organization present", ErrMalformedSnapshot)
	}

	var bundle models.SnapshotBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if multi && bundle.ByOrg == nil {
		bundle.ByOrg = map[string]*models.OrgSlice{}
	}
	return &bundle, nil
}

// resolveSlices indexes the bundle by organization and orders the ids: roster
// order first, then any organizations the roster does not list, sorted.
func resolveSlices(bundle *models.SnapshotBundle, meta *models.SnapshotMetadata) (map[string]*models.OrgSlice, []string) {
	slices := make(map[string]*models.OrgSlice)
	if bundle.IsMultiOrg() {
		for id, slice := range bundle.ByOrg {
			if slice != nil {
				slices[id] = slice
			}
		}
	} else {
		id := LegacyOrganizationID
		if len(meta.Organizations) > 0 {
			id = meta.Organizations[0].ID
		}
		legacy := bundle.OrgSlice
		slices[id] = &legacy
	}

	var order []string
	seen := make(map[string]bool)
	for _, id := range meta.OrganizationIDs() {
		if _, ok := slices[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range slices {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return slices, append(order, rest...)
}
