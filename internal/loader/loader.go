// Package loader implements LOAD ... WITH INDEX: parsing a "<int>, '<string>'"
// per line data file, appending each row to a heap table and, optionally,
// indexing it by key. A malformed line is skipped and counted rather than
// aborting the whole load; only a file with no well-formed rows at all is
// reported as invalid.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bptreeidx/engine/internal/btree"
	"github.com/bptreeidx/engine/internal/heap"
	"github.com/bptreeidx/engine/internal/ierrors"
)

// Result reports how a Load call went: rows actually appended, and lines
// skipped for being malformed (but the file as a whole was readable).
type Result struct {
	Loaded  int
	Skipped int
}

// Load reads path line by line, appending each well-formed "<key>, '<value>'"
// row to table, and, when idx is non-nil, inserting (key -> locator) into
// it. A line that fails to parse is skipped and counted, not fatal; a file
// where every single line fails to parse is reported as
// ierrors.ErrInvalidFileFormat (wrong format throughout, not occasional bad
// rows).
func Load(table *heap.Table, idx *btree.Tree, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open %s: %v", ierrors.ErrFileOpenFailed, path, err)
	}
	defer f.Close()

	var res Result
	var totalLines int

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		totalLines++

		key, value, ok := parseLine(line)
		if !ok {
			res.Skipped++
			continue
		}

		loc, err := table.Append(key, value)
		if err != nil {
			return res, fmt.Errorf("%w: append row: %v", ierrors.ErrFileWriteFailed, err)
		}
		res.Loaded++

		if idx != nil {
			if err := idx.Insert(key, btree.Locator{PageID: loc.PageID, SlotID: loc.SlotID}); err != nil {
				return res, fmt.Errorf("%w: index row: %v", ierrors.ErrFileWriteFailed, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("%w: read %s: %v", ierrors.ErrFileReadFailed, path, err)
	}

	if totalLines > 0 && res.Loaded == 0 {
		return res, fmt.Errorf("%w: no well-formed rows in %s", ierrors.ErrInvalidFileFormat, path)
	}
	return res, nil
}

// parseLine parses "<int>, '<string>'", tolerating surrounding whitespace.
func parseLine(line string) (key int32, value string, ok bool) {
	comma := strings.IndexByte(line, ',')
	if comma < 0 {
		return 0, "", false
	}
	keyPart := strings.TrimSpace(line[:comma])
	valPart := strings.TrimSpace(line[comma+1:])

	n, err := strconv.ParseInt(keyPart, 10, 32)
	if err != nil {
		return 0, "", false
	}
	if len(valPart) < 2 || valPart[0] != '\'' || valPart[len(valPart)-1] != '\'' {
		return 0, "", false
	}
	return int32(n), valPart[1 : len(valPart)-1], true
}
