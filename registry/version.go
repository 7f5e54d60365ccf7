package registry

import (
	"sort"
	"strconv"
	"strings"
)

// QueryKind tags the variant of a Query.
type QueryKind int

const (
	QueryLatest QueryKind = iota
	QueryExact
	QueryMajor
	QueryMinor
	QueryDigest
)

// Query is a version reference: a digest, "latest", or a partial/full
// semver with an optional "v" prefix.
type Query struct {
	Kind   QueryKind
	Exact  string // "vX.Y.Z", QueryExact
	Major  int    // QueryMajor, QueryMinor
	Minor  int    // QueryMinor
	Digest string // QueryDigest, "sha256:..."
}

// ParseQuery parses ref: a string containing ":" that does not start with
// "v" is a digest; otherwise an optional leading "v" is stripped and the
// remainder split on "."; one component is Major, two is Minor, three is
// Exact (re-prefixed with "v"); anything else is ErrInvalidReference.
func ParseQuery(ref string) (Query, error) {
	if ref == "latest" {
		return Query{Kind: QueryLatest}, nil
	}
	if strings.Contains(ref, ":") && !strings.HasPrefix(ref, "v") {
		return Query{Kind: QueryDigest, Digest: ref}, nil
	}

	trimmed := strings.TrimPrefix(ref, "v")
	parts := strings.Split(trimmed, ".")
	for _, p := range parts {
		if p == "" || !isAllDigits(p) {
			return Query{}, ErrInvalidReference
		}
	}

	switch len(parts) {
	case 1:
		major, err := strconv.Atoi(parts[0])
		if err != nil {
			return Query{}, ErrInvalidReference
		}
		return Query{Kind: QueryMajor, Major: major}, nil
	case 2:
		major, err1 := strconv.Atoi(parts[0])
		minor, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return Query{}, ErrInvalidReference
		}
		return Query{Kind: QueryMinor, Major: major, Minor: minor}, nil
	case 3:
		return Query{Kind: QueryExact, Exact: "v" + trimmed}, nil
	default:
		return Query{}, ErrInvalidReference
	}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type semver struct {
	major, minor, patch int
	tag                 string
}

// parseSemver parses a tag as an optional "v" prefix, three numeric
// components, and an ignored trailing "-..." suffix. Tags that don't match
// this shape are not semver candidates for Latest resolution.
func parseSemver(tag string) (semver, bool) {
	trimmed := strings.TrimPrefix(tag, "v")
	if idx := strings.IndexByte(trimmed, '-'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return semver{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if p == "" || !isAllDigits(p) {
			return semver{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return semver{}, false
		}
		nums[i] = n
	}
	return semver{major: nums[0], minor: nums[1], patch: nums[2], tag: tag}, true
}

// Resolve resolves q against tags: Digest/Exact require a literal match;
// Latest/Major/Minor pick the maximum semver tag under the filter the
// query implies. Returns a NotFoundError if nothing matches.
func Resolve(q Query, tags []string) (string, error) {
	switch q.Kind {
	case QueryDigest:
		for _, t := range tags {
			if t == q.Digest {
				return t, nil
			}
		}
		return "", &NotFoundError{Version: q.Digest}
	case QueryExact:
		for _, t := range tags {
			if t == q.Exact {
				return t, nil
			}
		}
		return "", &NotFoundError{Version: q.Exact}
	case QueryLatest:
		return pickMax(tags, func(semver) bool { return true })
	case QueryMajor:
		return pickMax(tags, func(sv semver) bool { return sv.major == q.Major })
	case QueryMinor:
		return pickMax(tags, func(sv semver) bool { return sv.major == q.Major && sv.minor == q.Minor })
	default:
		return "", ErrInvalidReference
	}
}

func pickMax(tags []string, filter func(semver) bool) (string, error) {
	var candidates []semver
	for _, t := range tags {
		sv, ok := parseSemver(t)
		if !ok || !filter(sv) {
			continue
		}
		candidates = append(candidates, sv)
	}
	if len(candidates) == 0 {
		return "", &NotFoundError{Version: "(no matching tag)"}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.major != b.major {
			return a.major < b.major
		}
		if a.minor != b.minor {
			return a.minor < b.minor
		}
		return a.patch < b.patch
	})
	return candidates[len(candidates)-1].tag, nil
}
