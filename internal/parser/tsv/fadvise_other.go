//go:build !linux

package tsv

import "os"

func adviseSequential(*os.File) {}
