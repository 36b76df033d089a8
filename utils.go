// nightfoxfilms-sub014: content-addressed photo/video/document import
// pipeline for location archives, with HTML reporting.
package main

import (
	"os/exec"
)

// dbRecordEstimate and dbMinPadding bound the disk-space preflight check:
// every finalized file adds roughly one row per media table plus its
// archive copy, so the db itself needs a little headroom beyond the sum
// of source file sizes.
const dbRecordEstimate = 512
const dbMinPadding = 10 * 1024 * 1024

func estimateDBSize(numFiles int) int64 {
	est := int64(numFiles) * dbRecordEstimate
	if est < dbMinPadding {
		return dbMinPadding
	}
	return est
}

// checkExternalTool checks if a tool is available in PATH. Used only for an
// informational preflight warning: the EXIFTOOL/FFPROBE jobs the Finalizer
// enqueues run out-of-process and out of this pipeline's core scope.
func checkExternalTool(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}
