package preflight

import (
	"fmt"
	"syscall"

	"github.com/Aman-CERP/titlesearch/internal/profiling"
)

// MinDiskSpaceBytes is the free space required next to the index (50MB).
const MinDiskSpaceBytes = 50 * 1024 * 1024

// CheckDiskSpace checks that an index rebuild fits next to the current
// artifact. Save writes a full temporary copy before renaming it.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)

	if availableBytes < MinDiskSpaceBytes {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s free (minimum: 50 MB)", profiling.FormatBytes(availableBytes))
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s free", profiling.FormatBytes(availableBytes))
	return result
}
