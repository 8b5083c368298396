package resolver

import (
	"strings"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
)

// ErrOutsideAllowedRoots is the fail-closed answer for any path that does
// not sit under a configured root, traversal attempts included.
var ErrOutsideAllowedRoots = apperr.New(apperr.CodeAccessDenied, "path is outside the allowed roots")

// Allowlist validates resolved physical paths against the configured set of
// permitted root prefixes. It is the last line of defense against path
// traversal and scope escape: authentication establishes who, the allowlist
// establishes where.
type Allowlist struct {
	// roots holds (normalized, original) pairs.
	roots []allowedRoot
}

type allowedRoot struct {
	normalized string
	original   string
}

func NewAllowlist(roots []string) *Allowlist {
	al := &Allowlist{}
	for _, r := range roots {
		n, ok := NormalizePath(r)
		if !ok || n == "" {
			continue
		}
		if !strings.HasSuffix(n, "/") {
			n += "/"
		}
		al.roots = append(al.roots, allowedRoot{normalized: n, original: r})
	}
	return al
}

// Check normalizes path and returns the configured root it falls under.
// Any mismatch fails closed, regardless of whether the file exists.
func (al *Allowlist) Check(path string) (string, error) {
	n, ok := NormalizePath(path)
	if !ok {
		return "", ErrOutsideAllowedRoots
	}
	for _, root := range al.roots {
		if strings.HasPrefix(n, root.normalized) {
			return root.original, nil
		}
	}
	return "", ErrOutsideAllowedRoots
}

// NormalizePath case-folds, converts separators to "/", and collapses the
// path segment by segment. It reports false for any traversal segment,
// since "..", once resolved, could land anywhere.
func NormalizePath(path string) (string, bool) {
	p := strings.ToLower(strings.ReplaceAll(path, `\`, "/"))

	// Preserve the UNC-style leading "//" so "//bank/x" and "/bank/x"
	// stay distinct prefixes.
	prefix := "/"
	if strings.HasPrefix(p, "//") {
		prefix = "//"
	} else if !strings.HasPrefix(p, "/") {
		prefix = ""
	}

	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", false
		default:
			segments = append(segments, seg)
		}
	}

	out := prefix + strings.Join(segments, "/")
	if strings.HasSuffix(p, "/") && len(segments) > 0 {
		out += "/"
	}
	return out, true
}
