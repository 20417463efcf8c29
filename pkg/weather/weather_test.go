package weather

import (
	"log/slog"

	"github.com/raterudder/solaradvisor/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
