package insight

import (
	"strings"

	"github.com/lumenlabs/insight-engine/internal/model"
)

const sourceMarkerPrefix = "[Source: "

// ResolveCitations scans answer for non-overlapping [Source: TITLE] markers
// and maps each TITLE to the document_id of the DocumentResult in docs with
// that exact title (C11). TITLE is the longest non-empty string up to the
// next unescaped ']'; an unterminated "[Source:" is left as literal text,
// never matched. If no markers are found, falls back to the ids of every
// document that contributed chunks to the prompt.
func ResolveCitations(answer string, docs []model.DocumentResult) []string {
	titleToID := make(map[string]string, len(docs))
	for _, d := range docs {
		titleToID[d.DocumentTitle] = d.DocumentID
	}

	ids := make([]string, 0)
	seen := make(map[string]struct{})

	rest := answer
	for {
		start := strings.Index(rest, sourceMarkerPrefix)
		if start < 0 {
			break
		}
		afterPrefix := rest[start+len(sourceMarkerPrefix):]
		end := -1
		for i := 0; i < len(afterPrefix); i++ {
			if afterPrefix[i] == '\\' {
				i++ // skip the escaped character
				continue
			}
			if afterPrefix[i] == ']' {
				end = i
				break
			}
		}
		if end < 0 {
			// Unterminated marker: treat the remainder as literal text and stop.
			break
		}
		title := strings.ReplaceAll(afterPrefix[:end], `\]`, "]")
		rest = afterPrefix[end+1:]

		if title == "" {
			continue
		}
		if id, ok := titleToID[title]; ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	if len(ids) > 0 {
		return ids
	}

	fallback := make([]string, 0, len(docs))
	for _, d := range docs {
		if len(d.Chunks) > 0 {
			fallback = append(fallback, d.DocumentID)
		}
	}
	return fallback
}
