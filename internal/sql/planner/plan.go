// Package planner normalises a SELECT's WHERE conditions before consulting
// the index: scan the key conditions once, fold them into at most one
// lower and one upper bound, and detect an unsatisfiable range up front so
// the executor can short-circuit to zero rows instead of touching the tree
// at all.
package planner

import (
	"math"

	"github.com/bptreeidx/engine/internal/sql/parser"
)

// KeyRange is the outcome of normalising every "key <op> <int>" condition in
// a WHERE clause. HasEq means an "=" condition pinned the scan to a single
// key (a point lookup); Lower/Upper bound an open range, each optional.
// Unsatisfiable is set when the folded bounds can never be met (e.g.
// "key > 10 AND key < 5", or two contradictory "=" conditions).
type KeyRange struct {
	HasEq  bool
	EqKey  int32
	HasLo  bool
	Lo     int32
	LoIncl bool
	HasHi  bool
	Hi     int32
	HiIncl bool

	Unsatisfiable bool
}

// Plan is the result of normalising a SELECT's WHERE clause: the key-range
// to drive the index with (UseIndex true when at least one non-"<>" key
// condition was present) and the leftover conditions — "<>" on key, and
// every condition on value — that must be applied by a post-hoc scan.
type Plan struct {
	UseIndex bool
	Range    KeyRange
	PostHoc  []parser.Cond
}

// Build separates key conditions from value conditions, folds "=" to a
// point range, folds the tightest ">"/">=" into Lo and the tightest
// "<"/"<=" into Hi, and carries "<>" and every value condition into
// PostHoc for scan-time filtering.
func Build(conds []parser.Cond) Plan {
	var p Plan
	var keyConds []parser.Cond

	for _, c := range conds {
		if c.Col != "key" || !c.HasInt {
			p.PostHoc = append(p.PostHoc, c)
			continue
		}
		keyConds = append(keyConds, c)
	}

	if len(keyConds) == 0 {
		return p
	}

	haveLo, haveHi := false, false
	var lo, hi int32
	loIncl, hiIncl := false, false

	for _, c := range keyConds {
		switch c.Op {
		case parser.OpEQ:
			if p.HasEqConflict(c.IntVal) {
				p.Range.Unsatisfiable = true
			}
			p.Range.HasEq = true
			p.Range.EqKey = c.IntVal
			p.UseIndex = true
		case parser.OpNE:
			// "<>" never narrows the index range; it is applied post-hoc,
			// exactly as the original source's EQ/NE carve-out.
			p.PostHoc = append(p.PostHoc, c)
		case parser.OpGT, parser.OpGE:
			v := c.IntVal
			incl := c.Op == parser.OpGE
			if !haveLo || v > lo || (v == lo && !incl) {
				lo, loIncl, haveLo = v, incl, true
			}
			p.UseIndex = true
		case parser.OpLT, parser.OpLE:
			v := c.IntVal
			incl := c.Op == parser.OpLE
			if !haveHi || v < hi || (v == hi && !incl) {
				hi, hiIncl, haveHi = v, incl, true
			}
			p.UseIndex = true
		}
	}

	p.Range.HasLo, p.Range.Lo, p.Range.LoIncl = haveLo, lo, loIncl
	p.Range.HasHi, p.Range.Hi, p.Range.HiIncl = haveHi, hi, hiIncl

	if haveLo && haveHi {
		if lo > hi || (lo == hi && !(loIncl && hiIncl)) {
			p.Range.Unsatisfiable = true
		}
	}
	if p.Range.HasEq {
		if haveLo && !satisfiesLower(p.Range.EqKey, lo, loIncl) {
			p.Range.Unsatisfiable = true
		}
		if haveHi && !satisfiesUpper(p.Range.EqKey, hi, hiIncl) {
			p.Range.Unsatisfiable = true
		}
	}
	return p
}

// HasEqConflict reports whether the range already pins a different "="
// key, i.e. two "key = a AND key = b" with a != b.
func (r *Plan) HasEqConflict(key int32) bool {
	return r.Range.HasEq && r.Range.EqKey != key
}

func satisfiesLower(v, lo int32, loIncl bool) bool {
	if loIncl {
		return v >= lo
	}
	return v > lo
}

func satisfiesUpper(v, hi int32, hiIncl bool) bool {
	if hiIncl {
		return v <= hi
	}
	return v < hi
}

// Satisfies reports whether key falls within the folded range (ignoring
// PostHoc conditions, which the executor applies separately after reading
// the row).
func (r KeyRange) Satisfies(key int32) bool {
	if r.Unsatisfiable {
		return false
	}
	if r.HasEq {
		return key == r.EqKey
	}
	if r.HasLo && !satisfiesLower(key, r.Lo, r.LoIncl) {
		return false
	}
	if r.HasHi && !satisfiesUpper(key, r.Hi, r.HiIncl) {
		return false
	}
	return true
}

// StartKey is the key to seed the index scan at: the "=" key, the lower
// bound (Lo itself when LoIncl is set, Lo+1 when it is not), or
// math.MinInt32 when there is no lower bound at
// all — keys are signed per spec.md §3, so an upper-bound-only query (e.g.
// "key < 5") must still start the scan at the leftmost leaf to pick up
// negative keys; 0 would silently skip them.
func (r KeyRange) StartKey() int32 {
	if r.HasEq {
		return r.EqKey
	}
	if r.HasLo {
		if r.LoIncl {
			return r.Lo
		}
		return r.Lo + 1
	}
	return math.MinInt32
}
