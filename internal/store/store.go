// Package store persists runs and results for the execution engine.
package store

import (
	"context"
	"fmt"
	"io"

	"github.com/moamenhredeen/oascov/internal/config"
	"github.com/moamenhredeen/oascov/internal/tester"
)

var (
	_ tester.Recorder = (*SQLStore)(nil)
	_ tester.Recorder = (*HTTPStore)(nil)
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the recorder selected by cfg. An empty driver returns a nil recorder.
// The closer must be closed once the run is complete.
func Open(ctx context.Context, cfg config.StoreConfig) (tester.Recorder, io.Closer, error) {
	switch cfg.Driver {
	case "":
		return nil, nopCloser{}, nil
	case config.DriverSQLite, config.DriverMySQL:
		s, err := NewSQLStore(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverHTTP:
		return NewHTTPStore(cfg.URL, nil), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
