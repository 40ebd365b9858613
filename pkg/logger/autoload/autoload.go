// Package autoload initializes the global logger from LOG_* variables when
// imported for its side effect.
package autoload

import (
	configx "github.com/tanpawarit/sales-assistant/pkg/config"
	logx "github.com/tanpawarit/sales-assistant/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
