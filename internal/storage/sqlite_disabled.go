//go:build !sqlite
// +build !sqlite

package storage

import (
	"fmt"

	logx "stockmon/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, fmt.Errorf("sqlite driver: %w (build with -tags sqlite)", ErrDisabled)
}
