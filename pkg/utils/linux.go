//go:build linux

package utils

import (
	"github.com/srand/jolt/testqueue/pkg/log"
	"golang.org/x/sys/unix"
)

func DisableTHP() {
	// The queue keeps every test history in memory; huge pages inflate its RSS.
	log.Info("Disabling transparent huge pages")
	if err := unix.Prctl(unix.PR_SET_THP_DISABLE, 1, 0, 0, 0); err != nil {
		log.Warn("Failed to disable transparent huge pages:", err)
	}
}
