package startup

import (
	"fmt"
	"os"

	"github.com/latticelab/ergo/internal/config"
	"github.com/latticelab/ergo/internal/export"
)

// buildExporter constructs the configured sink chain. With a single sink the
// exporter is returned directly; multiple sinks are fanned out through a
// MultiExporter. The returned close function releases every opened sink.
func buildExporter(cfg *config.Config) (export.Exporter, func() error, error) {
	var sinks []export.Exporter
	for _, name := range cfg.Export.Sinks {
		sink, err := buildSink(name, cfg)
		if err != nil {
			closeSinks(sinks)
			return nil, nil, err
		}
		sinks = append(sinks, sink)
	}

	if len(sinks) == 1 {
		return sinks[0], func() error { return closeSinks(sinks) }, nil
	}
	multi := export.NewMultiExporter(sinks...)
	return multi, multi.Close, nil
}

func buildSink(name string, cfg *config.Config) (export.Exporter, error) {
	switch name {
	case config.SinkConsole:
		return export.NewConsoleExporter(os.Stdout), nil
	case config.SinkJSONL:
		return export.NewJSONLExporter(cfg.Export.JSONLPath)
	case config.SinkSQLite:
		return export.NewSQLiteExporter(cfg.Export.SQLitePath)
	case config.SinkHTTP:
		return export.NewHTTPExporter(cfg.Export.CollectorURL, cfg.Export.CollectorTimeout.Std()), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}

func closeSinks(sinks []export.Exporter) error {
	var err error
	for _, s := range sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}
