package expand

import (
	"regexp"
	"slices"
	"strings"
)

// placeholder matches {{ name }}; whitespace inside the braces is insignificant.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Names returns the placeholder names in template, in order of appearance,
// without duplicates.
func Names(template string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// References reports whether template contains a placeholder for name.
func References(template, name string) bool {
	return slices.Contains(Names(template), name)
}

// Expand resolves every placeholder in template.
//
// Looked-up templates are expanded recursively; substituted values are final
// and are not scanned again. Expansion fails with ErrUnresolvedReference when
// a name is found nowhere, and with ErrCyclicReference when a name is reached
// again while it is still being resolved.
func (s *Store) Expand(template string) (string, error) {
	r := &resolver{
		store: s,
		limit: len(s.variables) + len(s.environment) + 1,
	}
	return r.expand(template)
}

// MustExpand is Expand for templates known to be valid, such as in tests.
func (s *Store) MustExpand(template string) string {
	v, err := s.Expand(template)
	if err != nil {
		panic(err)
	}
	return v
}

type resolver struct {
	store *Store
	stack []string
	limit int
}

func (r *resolver) expand(template string) (string, error) {
	matches := placeholder.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(template[last:m[0]])
		v, err := r.resolve(template[m[2]:m[3]])
		if err != nil {
			return "", err
		}
		sb.WriteString(v)
		last = m[1]
	}
	sb.WriteString(template[last:])
	return sb.String(), nil
}

func (r *resolver) resolve(name string) (string, error) {
	if i := slices.Index(r.stack, name); i >= 0 {
		return "", &ReferenceError{
			Name:  name,
			Chain: append(slices.Clone(r.stack[i:]), name),
			Err:   ErrCyclicReference,
		}
	}
	// Unreachable while the stack check holds; kept as a hard bound.
	if len(r.stack) >= r.limit {
		return "", &ReferenceError{Name: name, Chain: slices.Clone(r.stack), Err: ErrCyclicReference}
	}

	s := r.store
	e, ok := s.environment[name]
	if !ok {
		e, ok = s.variables[name]
	}
	if ok {
		if e.literal {
			return e.value, nil
		}
		r.stack = append(r.stack, name)
		v, err := r.expand(e.value)
		r.stack = r.stack[:len(r.stack)-1]
		return v, err
	}

	if v, ok := s.scalars[name]; ok {
		return v, nil
	}
	if v, ok := s.external[name]; ok {
		return v, nil
	}

	return "", &ReferenceError{Name: name, Chain: slices.Clone(r.stack), Err: ErrUnresolvedReference}
}
