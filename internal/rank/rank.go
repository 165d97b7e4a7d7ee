// Package rank merges result sets from independent sources: stable
// first-wins deduplication, an optional cap and an approximate title match
// for items without a reliable identity.
package rank

import "strings"

// Dedupe keeps the first item for each key and preserves input order.
func Dedupe[T any, K comparable](items []T, key func(T) K) []T {
	if items == nil {
		return nil
	}
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// DedupeFunc is Dedupe for identity relations that are not a hashable key,
// such as TitleOverlap. It is quadratic; use it on short lists.
func DedupeFunc[T any](items []T, same func(a, b T) bool) []T {
	if items == nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		dup := false
		for _, kept := range out {
			if same(kept, it) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, it)
		}
	}
	return out
}

// Take returns at most n leading items. n <= 0 means no cap.
func Take[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// NormalizeTitle lowercases and collapses whitespace.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// TitleOverlap treats two titles as the same listing when either normalized
// title contains the other. Empty titles never match.
func TitleOverlap(a, b string) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Union appends the values of add that are not already present, comparing
// exactly. Existing duplicates in base are also collapsed.
func Union(base, add []string) []string {
	if len(base) == 0 && len(add) == 0 {
		return base
	}
	all := make([]string, 0, len(base)+len(add))
	all = append(all, base...)
	all = append(all, add...)
	return Dedupe(all, func(s string) string { return s })
}
