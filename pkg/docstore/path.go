package docstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Path addresses a node in the tree. The zero value is the root.
type Path string

var reForbiddenSegment = regexp.MustCompile(`[.#$\[\]]`)

// Join builds a path from segments, dropping surrounding slashes.
func Join(segments ...string) Path {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return Path(strings.Join(parts, "/"))
}

func (p Path) Child(key string) Path {
	return Join(string(p), key)
}

func (p Path) Parent() Path {
	i := strings.LastIndex(string(p), "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Key is the last segment of the path.
func (p Path) Key() string {
	i := strings.LastIndex(string(p), "/")
	return string(p[i+1:])
}

func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

func (p Path) String() string {
	return string(p)
}

// Contains reports whether q is p itself or lies below p.
func (p Path) Contains(q Path) bool {
	if p == "" || p == q {
		return true
	}
	return strings.HasPrefix(string(q), string(p)+"/")
}

func (p Path) Validate() error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(string(p), "/") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p)
		}
		if reForbiddenSegment.MatchString(seg) {
			return fmt.Errorf("%w: segment %q contains a forbidden character", ErrInvalidPath, seg)
		}
	}
	return nil
}

// Template is a path with {name} placeholders, e.g.
// "users/{serviceCenterId}/clients/{clientId}".
type Template string

var rePlaceholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Expand substitutes vars into the template. It reports false when a
// placeholder has no value or when a value would add segments.
func (t Template) Expand(vars map[string]string) (Path, bool) {
	ok := true
	out := rePlaceholder.ReplaceAllStringFunc(string(t), func(m string) string {
		v := vars[m[1:len(m)-1]]
		if v == "" || strings.Contains(v, "/") {
			ok = false
		}
		return v
	})
	if !ok {
		return "", false
	}
	p := Path(out)
	if p.Validate() != nil {
		return "", false
	}
	return p, true
}

// ValidateKey checks that key can be used as a single path segment.
func ValidateKey(key string) error {
	if strings.Contains(key, "/") {
		return fmt.Errorf("%w: key %q contains a slash", ErrInvalidPath, key)
	}
	return Path(key).Validate()
}
