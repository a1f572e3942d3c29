// Package file contains helpers for reading local files as datasources.
package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadList reads a text file line by line and returns the non-empty,
// non-comment lines. It backs list-valued settings that may live in their own
// file, such as the title-type allow-list.
//
// Lines that are empty or start with '#' (after trimming leading/trailing
// whitespace) are skipped. The order of lines is preserved.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
