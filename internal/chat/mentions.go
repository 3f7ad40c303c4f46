package chat

import (
	"regexp"
	"strings"
)

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// Mentions come in two syntaxes: a bare "@<id>" token and a bracketed
// "@[<id>]" token. The bracketed alternative is tried first so "@[" is
// never half-matched by the bare form.
var mentionRe = regexp.MustCompile(`@\[(` + uuidPattern + `)\]|@(` + uuidPattern + `)`)

// ExtractMentions scans content for user references and returns the
// deduplicated ids in order of first appearance. Tokens that don't match
// the id format are ignored; callers are responsible for checking that
// the ids refer to real accounts.
func ExtractMentions(content string) []string {
	matches := mentionRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var ids []string
	for _, m := range matches {
		id := m[1]
		if id == "" {
			id = m[2]
		}
		id = strings.ToLower(id)

		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}
