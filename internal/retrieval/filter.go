package retrieval

import (
	"encoding/json"
	"time"

	"github.com/lumenlabs/insight-engine/internal/model"
)

// ApplyFilters narrows a fused hit list by document id, document type, and
// chunk-metadata date range, in that order (C5). Filtering is stable.
func ApplyFilters(hits []model.FusedHit, filters *model.Filters) []model.FusedHit {
	if filters.Empty() {
		return hits
	}

	out := hits

	if len(filters.DocumentIDs) > 0 {
		allowed := toSet(filters.DocumentIDs)
		out = filterStable(out, func(h model.FusedHit) bool {
			_, ok := allowed[h.DocumentID]
			return ok
		})
	}

	if len(filters.DocumentTypes) > 0 {
		allowed := toSet(filters.DocumentTypes)
		out = filterStable(out, func(h model.FusedHit) bool {
			if h.DocumentType == "" {
				return true
			}
			_, ok := allowed[h.DocumentType]
			return ok
		})
	}

	if filters.DateRange != nil {
		if filters.DateRange.Start != nil {
			start := *filters.DateRange.Start
			out = filterStable(out, func(h model.FusedHit) bool {
				d, ok := chunkDate(h)
				return !ok || !d.Before(start)
			})
		}
		if filters.DateRange.End != nil {
			end := *filters.DateRange.End
			out = filterStable(out, func(h model.FusedHit) bool {
				d, ok := chunkDate(h)
				return !ok || !d.After(end)
			})
		}
	}

	return out
}

func filterStable(hits []model.FusedHit, keep func(model.FusedHit) bool) []model.FusedHit {
	out := make([]model.FusedHit, 0, len(hits))
	for _, h := range hits {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// chunkDate extracts a date from a chunk's metadata under "created_at" or
// "date", in that order. Hits without either field pass through filters
// unfiltered, per §4.5.
func chunkDate(h model.FusedHit) (time.Time, bool) {
	if len(h.Metadata) == 0 {
		return time.Time{}, false
	}
	var meta map[string]any
	if err := json.Unmarshal(h.Metadata, &meta); err != nil {
		return time.Time{}, false
	}
	for _, key := range []string{"created_at", "date"} {
		raw, ok := meta[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
