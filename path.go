package trickle

import "strings"

// RootPath is the rendered form of the empty path. Using a non-empty marker
// keeps the root distinguishable from "no path" in the completed/pending
// sets.
const RootPath = "$"

// JoinPath renders path segments in the dot-joined form used throughout the
// API: "$" for the root, "user.name" or "items.2" otherwise. Keys containing
// a dot are left as-is; callers needing a reversible encoding should keep the
// segment form.
func JoinPath(segs []string) string {
	if len(segs) == 0 {
		return RootPath
	}
	return strings.Join(segs, ".")
}

// pathSet is an insertion-ordered string set; materialized snapshots preserve
// the order in which paths were recorded.
type pathSet struct {
	order []string
	set   map[string]struct{}
}

func newPathSet() *pathSet {
	return &pathSet{set: make(map[string]struct{})}
}

func (p *pathSet) add(key string) {
	if _, ok := p.set[key]; ok {
		return
	}
	p.set[key] = struct{}{}
	p.order = append(p.order, key)
}

func (p *pathSet) remove(key string) {
	if _, ok := p.set[key]; !ok {
		return
	}
	delete(p.set, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *pathSet) has(key string) bool {
	_, ok := p.set[key]
	return ok
}

func (p *pathSet) materialize() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

func (p *pathSet) reset() {
	p.order = p.order[:0]
	clear(p.set)
}
