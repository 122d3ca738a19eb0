package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the per-run log file path: <dir>/<name>.<start>.log.
func LogFilePath(logsDir, name string, runStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, runStart.Format("20060102_150405")))
}
