package output

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ScanFile calls fn with the fields of every line of path. The slice passed
// to fn is reused between calls.
func ScanFile(ctx context.Context, path, delim string, fn func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var fields []string
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fields = splitInto(fields[:0], sc.Text(), delim)
		if err := fn(fields); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func splitInto(dst []string, s, delim string) []string {
	for {
		i := strings.Index(s, delim)
		if i < 0 {
			return append(dst, s)
		}
		dst = append(dst, s[:i])
		s = s[i+len(delim):]
	}
}

// Scan calls fn for every row of table, reading the unsplit file or, when it
// is gone, the chunk files in order.
func (l Layout) Scan(ctx context.Context, table string, fn func(fields []string) error) error {
	files, err := l.Files(table)
	if err != nil {
		return err
	}
	for _, p := range files {
		if err := ScanFile(ctx, p, l.Delim, fn); err != nil {
			return err
		}
	}
	return nil
}

// ReadIDs calls fn with the first column of every row of table. It rebuilds
// an index set from earlier output.
func (l Layout) ReadIDs(ctx context.Context, table string, fn func(id uint64)) error {
	return l.Scan(ctx, table, func(fields []string) error {
		id, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id column: %w", err)
		}
		fn(id)
		return nil
	})
}

// ReadPairs calls fn with the first two columns of every row of table.
func (l Layout) ReadPairs(ctx context.Context, table string, fn func(a, b uint64)) error {
	return l.Scan(ctx, table, func(fields []string) error {
		if len(fields) < 2 {
			return fmt.Errorf("want 2 columns, got %d", len(fields))
		}
		a, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return fmt.Errorf("first column: %w", err)
		}
		b, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("second column: %w", err)
		}
		fn(a, b)
		return nil
	})
}
