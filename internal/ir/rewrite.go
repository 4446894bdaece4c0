package ir

// Walk visits f and its descendants depth-first in pre-order. Returning
// false from visit skips the children of that fragment.
func Walk(f Fragment, visit func(Fragment) bool) {
	if f == nil || !visit(f) {
		return
	}
	for _, c := range f.Children() {
		Walk(c, visit)
	}
}

// Count returns the number of occurrences of target in f, counting every
// path by which it is reachable.
func Count(f, target Fragment) int {
	n := 0
	Walk(f, func(x Fragment) bool {
		if x == target {
			n++
		}
		return true
	})
	return n
}

// Rewrite rebuilds f bottom-up, replacing each fragment x for which fn
// returns (y, true) with y. Unchanged sub-trees keep their identity, and a
// sub-tree reachable along several paths is rewritten once.
func Rewrite(f Fragment, fn func(Fragment) (Fragment, bool)) Fragment {
	memo := make(map[Fragment]Fragment)
	var visit func(Fragment) Fragment
	visit = func(x Fragment) Fragment {
		if x == nil {
			return nil
		}
		if y, ok := memo[x]; ok {
			return y
		}
		if y, ok := fn(x); ok {
			memo[x] = y
			return y
		}
		children := x.Children()
		var rebuilt []Fragment
		for i, c := range children {
			nc := visit(c)
			if nc != c && rebuilt == nil {
				rebuilt = make([]Fragment, len(children))
				copy(rebuilt, children[:i])
			}
			if rebuilt != nil {
				rebuilt[i] = nc
			}
		}
		y := x
		if rebuilt != nil {
			y = x.WithChildren(rebuilt)
		}
		memo[x] = y
		return y
	}
	return visit(f)
}

// Replace substitutes every occurrence of target in f with with.
func Replace(f, target, with Fragment) Fragment {
	return Rewrite(f, func(x Fragment) (Fragment, bool) {
		if x == target {
			return with, true
		}
		return nil, false
	})
}
