package app

import (
	"os"
	"time"

	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/logger"

	"go.uber.org/zap"
)

// Run modes. ModeAPI serves HTTP only, ModeWorker runs the queue
// consumer and the periodic loops only, ModeAll runs both.
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options controls how the application starts.
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
