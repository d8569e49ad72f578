package engine

import (
	"sort"
)

// callArgs holds the evaluated arguments of one method call.
type callArgs struct {
	method string
	pos    []any
	kw     map[string]any
}

// expect rejects surplus positional arguments and unknown keywords.
func (a *callArgs) expect(maxPos int, names ...string) error {
	if len(a.pos) > maxPos {
		return typeErrorf("%s() takes %d positional arguments but %d were given", a.method, maxPos, len(a.pos))
	}
	var unknown []string
	for k := range a.kw {
		ok := false
		for _, n := range names {
			if n == k {
				ok = true
				break
			}
		}
		if !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return typeErrorf("%s() got an unexpected keyword argument '%s'", a.method, unknown[0])
	}
	return nil
}

// get returns positional argument i, or the keyword name.
func (a *callArgs) get(i int, name string) (any, bool) {
	if i >= 0 && i < len(a.pos) {
		return a.pos[i], true
	}
	v, ok := a.kw[name]
	return v, ok
}

func (a *callArgs) required(i int, name string) (any, error) {
	v, ok := a.get(i, name)
	if !ok {
		return nil, typeErrorf("%s() missing 1 required positional argument: '%s'", a.method, name)
	}
	return v, nil
}

func (a *callArgs) intArg(i int, name string, def int) (int, error) {
	v, ok := a.get(i, name)
	if !ok || v == nil {
		return def, nil
	}
	n, isInt := v.(int64)
	if !isInt {
		return 0, typeErrorf("%s() argument '%s' must be an integer, not '%s'", a.method, name, typeName(v))
	}
	return int(n), nil
}

func (a *callArgs) boolArg(i int, name string, def bool) (bool, error) {
	v, ok := a.get(i, name)
	if !ok {
		return def, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, valueErrorf("For argument \"%s\" expected type bool, received type %s.", name, typeName(v))
	}
	return b, nil
}

func (a *callArgs) stringArg(i int, name string) (string, error) {
	v, err := a.required(i, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErrorf("%s() argument '%s' must be str, not '%s'", a.method, name, typeName(v))
	}
	return s, nil
}

// stringsArg accepts a single name or a list of names.
func (a *callArgs) stringsArg(i int, name string) ([]string, error) {
	v, err := a.required(i, name)
	if err != nil {
		return nil, err
	}
	return toStrings(v)
}

func toStrings(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	items, ok := asList(v)
	if !ok {
		return nil, keyErrorf("%s", quoteKey(v))
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, keyErrorf("%s", quoteKey(it))
		}
		out[i] = s
	}
	return out, nil
}

// asList unwraps list and tuple values.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case tuple:
		return x, true
	}
	return nil, false
}
