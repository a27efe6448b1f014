//go:build !darwin && !windows && !linux

package storage

import (
	"os"
	"time"
)

// birthTime falls back to the modification time: syscall.Stat_t carries no
// birth time on these platforms.
func birthTime(_ string, info os.FileInfo) time.Time {
	return info.ModTime()
}
