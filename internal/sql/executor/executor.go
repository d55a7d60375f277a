// Package executor is the SQL front-end's command loop: it parses one
// statement at a time, consults the planner to fold WHERE conditions, and
// drives the heap table plus its optional B+Tree index — the two external
// collaborators this repository's core is built around.
package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bptreeidx/engine/internal/btree"
	"github.com/bptreeidx/engine/internal/heap"
	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/loader"
	"github.com/bptreeidx/engine/internal/page"
	"github.com/bptreeidx/engine/internal/sql/parser"
	"github.com/bptreeidx/engine/internal/sql/planner"
)

// tableHandle is a loaded table's open heap file plus its optional index.
type tableHandle struct {
	heap *heap.Table
	idx  *btree.Tree // nil when the table was loaded without WITH INDEX
}

// Executor is a single session's SQL command loop. The tree and heap
// beneath it are single-threaded and non-reentrant, so a second operation
// must not begin before the first returns: concurrent ExecSQL calls on the
// same Executor are serialized by mu. A server hands each connection its
// own Executor, so each session has its own set of opened tables.
type Executor struct {
	mu      sync.Mutex
	workdir string
	tables  map[string]*tableHandle
}

// NewExecutor creates an Executor rooted at workdir, where "<table>.heap"
// and "<table>.idx" files live.
func NewExecutor(workdir string) *Executor {
	return &Executor{workdir: workdir, tables: make(map[string]*tableHandle)}
}

// Close closes every table and index this Executor has opened.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, h := range e.tables {
		if h.idx != nil {
			if err := h.idx.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := h.heap.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.tables = make(map[string]*tableHandle)
	return firstErr
}

func (e *Executor) heapPath(table string) string {
	return filepath.Join(e.workdir, table+".heap")
}

func (e *Executor) idxPath(table string) string {
	return filepath.Join(e.workdir, table+".idx")
}

// ExecSQL parses and executes a single statement. The one non-SQL
// exception is "\tree <table>", a diagnostic meta-command that dumps the
// table's index root via Tree.DebugDump (the supplemented printRoot
// feature); everything else is parsed as LOAD or SELECT.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(sql), `\tree`); ok {
		return e.execTreeDump(strings.TrimSpace(rest))
	}

	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch s := stmt.(type) {
	case *parser.LoadStmt:
		return e.execLoad(s)
	case *parser.SelectStmt:
		return e.execSelect(s)
	default:
		return nil, fmt.Errorf("executor: unsupported statement %T", stmt)
	}
}

func (e *Executor) execTreeDump(table string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.tables[table]
	if !ok || h.idx == nil {
		return nil, fmt.Errorf("executor: table %q has no index to dump", table)
	}
	var buf strings.Builder
	if err := h.idx.DebugDump(&buf); err != nil {
		return nil, err
	}
	return &Result{Message: buf.String()}, nil
}

func (e *Executor) execLoad(s *parser.LoadStmt) (*Result, error) {
	if err := os.MkdirAll(e.workdir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ierrors.ErrFileWriteFailed, e.workdir, err)
	}

	h, ok := e.tables[s.Table]
	if !ok {
		store, err := page.Open(e.heapPath(s.Table), page.ReadWrite)
		if err != nil {
			return nil, err
		}
		tbl, err := heap.Open(store)
		if err != nil {
			return nil, err
		}
		h = &tableHandle{heap: tbl}
		e.tables[s.Table] = h
	}

	if s.WithIndex && h.idx == nil {
		tree, err := btree.Open(e.idxPath(s.Table), page.ReadWrite)
		if err != nil {
			return nil, err
		}
		h.idx = tree
	}

	res, err := loader.Load(h.heap, h.idx, s.File)
	if err != nil {
		return nil, err
	}
	slog.Debug("executor: load complete", "table", s.Table, "loaded", res.Loaded, "skipped", res.Skipped)

	return &Result{
		AffectedRows: int64(res.Loaded),
		Message:      fmt.Sprintf("%d rows loaded, %d lines skipped", res.Loaded, res.Skipped),
	}, nil
}

func (e *Executor) execSelect(s *parser.SelectStmt) (*Result, error) {
	h, ok := e.tables[s.Table]
	if !ok {
		return nil, fmt.Errorf("executor: table %q is not loaded in this session", s.Table)
	}

	plan := planner.Build(s.Where)

	var rows [][]any
	emit := func(key int32, value string) {
		switch s.Target {
		case parser.TargetKey:
			rows = append(rows, []any{key})
		case parser.TargetValue:
			rows = append(rows, []any{value})
		default: // TargetStar
			rows = append(rows, []any{key, value})
		}
	}

	var err error
	if plan.Range.Unsatisfiable {
		// Nothing can match; skip both the index and the heap entirely.
	} else if plan.UseIndex && h.idx != nil {
		err = e.scanIndex(h, plan, emit)
	} else {
		err = e.scanHeap(h, plan, emit)
	}
	if err != nil {
		return nil, err
	}

	if s.Target == parser.TargetCountStar {
		return &Result{Columns: []string{"count(*)"}, Rows: [][]any{{int64(len(rows))}}}, nil
	}

	cols := []string{"key", "value"}
	if s.Target == parser.TargetKey {
		cols = []string{"key"}
	} else if s.Target == parser.TargetValue {
		cols = []string{"value"}
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

// scanIndex drives the normalized key range through the B+Tree, applying
// PostHoc conditions (value conditions, "<>" on key) to each candidate row
// read back from the heap via its locator.
func (e *Executor) scanIndex(h *tableHandle, plan planner.Plan, emit func(int32, string)) error {
	cur, err := h.idx.Locate(plan.Range.StartKey())
	if err != nil {
		if errors.Is(err, ierrors.ErrEndOfTree) || errors.Is(err, ierrors.ErrNoSuchRecord) {
			return nil
		}
		return err
	}

	for {
		key, loc, next, rerr := h.idx.ReadForward(cur)
		if rerr != nil {
			if errors.Is(rerr, ierrors.ErrEndOfTree) {
				return nil
			}
			return rerr
		}
		if !plan.Range.Satisfies(key) {
			return nil
		}

		_, value, herr := h.heap.Read(heap.Locator{PageID: loc.PageID, SlotID: loc.SlotID})
		if herr != nil {
			return herr
		}
		if matchesPostHoc(plan.PostHoc, key, value) {
			emit(key, value)
		}
		cur = next
	}
}

// scanHeap is the fallback path: no key condition narrowed the search to the
// index (or the table carries none), so every row is visited in heap order
// and filtered in memory, exactly as SqlEngine::linearScan does.
func (e *Executor) scanHeap(h *tableHandle, plan planner.Plan, emit func(int32, string)) error {
	return h.heap.Scan(func(_ heap.Locator, key int32, value string) error {
		if !plan.Range.Satisfies(key) {
			return nil
		}
		if matchesPostHoc(plan.PostHoc, key, value) {
			emit(key, value)
		}
		return nil
	})
}

func matchesPostHoc(conds []parser.Cond, key int32, value string) bool {
	for _, c := range conds {
		if !matchesCond(c, key, value) {
			return false
		}
	}
	return true
}

func matchesCond(c parser.Cond, key int32, value string) bool {
	if c.Col == "key" {
		return compareInt(key, c.IntVal, c.Op)
	}
	if c.IsString {
		return compareString(value, c.StrVal, c.Op)
	}
	return true
}

func compareInt(a, b int32, op parser.CompOp) bool {
	switch op {
	case parser.OpEQ:
		return a == b
	case parser.OpNE:
		return a != b
	case parser.OpLT:
		return a < b
	case parser.OpLE:
		return a <= b
	case parser.OpGT:
		return a > b
	case parser.OpGE:
		return a >= b
	default:
		return false
	}
}

func compareString(a, b string, op parser.CompOp) bool {
	c := strings.Compare(a, b)
	switch op {
	case parser.OpEQ:
		return c == 0
	case parser.OpNE:
		return c != 0
	case parser.OpLT:
		return c < 0
	case parser.OpLE:
		return c <= 0
	case parser.OpGT:
		return c > 0
	case parser.OpGE:
		return c >= 0
	default:
		return false
	}
}
