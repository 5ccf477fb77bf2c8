package cmr

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Param is a single query key/value pair.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered multimap of query parameters. Keys may repeat and the
// order of values under a key is kept, since CMR gives it meaning (for
// example repeated sort_key or temporal values).
type Params struct {
	pairs []Param
}

// NewParams builds Params from alternating key, value arguments. A trailing
// key without a value is ignored.
func NewParams(kv ...string) Params {
	var p Params
	for i := 0; i+1 < len(kv); i += 2 {
		p.Add(kv[i], kv[i+1])
	}
	return p
}

// ParseParams parses "key=value" strings, as given on a command line.
func ParseParams(args []string) (Params, error) {
	var p Params
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return Params{}, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		p.Add(k, v)
	}
	return p, nil
}

// Add appends a value under key, keeping any existing values.
func (p *Params) Add(key, value string) {
	p.pairs = append(p.pairs, Param{Key: key, Value: value})
}

// Set replaces every value under key with a single value. The new pair takes
// the position of the first removed one, or goes last if key was absent.
func (p *Params) Set(key, value string) {
	idx := slices.IndexFunc(p.pairs, func(kv Param) bool { return kv.Key == key })
	if idx < 0 {
		p.Add(key, value)
		return
	}
	p.Del(key)
	p.pairs = slices.Insert(p.pairs, idx, Param{Key: key, Value: value})
}

// Del removes every value under key.
func (p *Params) Del(key string) {
	p.pairs = slices.DeleteFunc(p.pairs, func(kv Param) bool { return kv.Key == key })
}

// Get returns the first value under key.
func (p Params) Get(key string) string {
	for _, kv := range p.pairs {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Values returns all values under key in insertion order.
func (p Params) Values(key string) []string {
	var out []string
	for _, kv := range p.pairs {
		if kv.Key == key {
			out = append(out, kv.Value)
		}
	}
	return out
}

// Len is the number of pairs.
func (p Params) Len() int {
	return len(p.pairs)
}

// Pairs returns a copy of the pairs in order.
func (p Params) Pairs() []Param {
	return slices.Clone(p.pairs)
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	return Params{pairs: slices.Clone(p.pairs)}
}

// Encode renders the pairs as a URL query string in insertion order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}
