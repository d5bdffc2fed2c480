// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import "github.com/siphond/siphond/pkg/log"

// fallbackLog routes a message to pkg/log's severity-specific writer
// when no log callback is registered (§4.5).
func fallbackLog(level int, msg string) {
	switch level {
	case LevelCritical:
		log.Crit(msg)
	case LevelError:
		log.Error(msg)
	case LevelWarning:
		log.Warn(msg)
	case LevelNotice:
		log.Note(msg)
	case LevelInfo:
		log.Info(msg)
	default:
		log.Debug(msg)
	}
}
