package vkg

import (
	units "github.com/docker/go-units"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// SetLogger routes bootstrap and validation-layer messages to l. A nil logger
// silences them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func zapSize(size uint64) zap.Field {
	return zap.String("size", units.BytesSize(float64(size)))
}
