package runner

import (
	"fmt"

	"github.com/uhppoted/uhppoted-lib/log"
)

const LOG_TAG = "runner"

func debugf(format string, args ...any) {
	log.Debugf("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	log.Infof("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Warnf("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}
