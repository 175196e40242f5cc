// Package oracle decides whether a pipeline stage has already completed.
//
// Completion is recorded by a sentinel file written only after the stage
// output was published, so the oracle is always asked about the sentinel and
// never about the primary output.
package oracle

import (
	"os"
)

// SentinelSuffix is appended to an output path to name its sentinel
const SentinelSuffix = ".md5"

// Sentinel returns the completion marker of output.
func Sentinel(output string) string {
	return output + SentinelSuffix
}

// Oracle answers completion queries against the local filesystem
type Oracle struct {
	stat func(string) (os.FileInfo, error)
}

// New creates an oracle backed by os.Stat
func New() *Oracle {
	return &Oracle{stat: os.Stat}
}

// Check returns whether path is missing and, when present, its size.
// A path is complete only if it is a regular file with size > 0.
func (o *Oracle) Check(path string) (missing bool, size int64) {
	if path == "" {
		return true, 0
	}
	info, err := o.stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() <= 0 {
		return true, 0
	}
	return false, info.Size()
}

// IsMissing reports whether path does not mark a completed stage.
func (o *Oracle) IsMissing(path string) bool {
	missing, _ := o.Check(path)
	return missing
}

// IsMissing checks path with the default oracle.
func IsMissing(path string) bool {
	return New().IsMissing(path)
}
