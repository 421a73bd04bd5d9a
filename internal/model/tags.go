package model

import "strings"

// JoinTags canonicalises tags for storage: each tag is trimmed, empty tags
// are dropped and the rest are comma-joined in order.
func JoinTags(tags []string) string {
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ",")
}

// SplitTags is the inverse of JoinTags. It never returns empty tags.
func SplitTags(s string) []string {
	tags := make([]string, 0)
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
