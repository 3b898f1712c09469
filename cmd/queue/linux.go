//go:build linux

package main

import (
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

func init() {
	log.Debug("Detected Linux")

	utils.DisableTHP()
}
