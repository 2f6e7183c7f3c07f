// Package profiling starts optional pprof and Pyroscope profilers.
package profiling

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/grafana/pyroscope-go"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
)

// Config enables the profilers.
type Config struct {
	PprofEnabled     bool   `env:"ENABLE_PROFILING"            yaml:"pprof_enabled"`
	PprofAddr        string `env:"PPROF_ADDR"                  yaml:"pprof_addr"`
	PyroscopeEnabled bool   `env:"ENABLE_CONTINUOUS_PROFILING" yaml:"pyroscope_enabled"`
	PyroscopeURL     string `env:"PYROSCOPE_SERVER_URL"        yaml:"pyroscope_url"`
	Environment      string `env:"PYROSCOPE_ENVIRONMENT"       yaml:"environment"`
}

const (
	defaultPprofAddr    = "localhost:6060"
	defaultPyroscopeURL = "http://pyroscope:4040"
)

// Profilers holds whatever Start started.
type Profilers struct {
	pprof     *http.Server
	pyroscope *pyroscope.Profiler
}

// Start launches the enabled profilers for service.
func Start(cfg Config, service, version string, log logger.Logger) (*Profilers, error) {
	p := &Profilers{}

	if cfg.PprofEnabled {
		addr := cfg.PprofAddr
		if addr == "" {
			addr = defaultPprofAddr
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		p.pprof = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			log.Info("pprof server listening", logger.String("addr", addr))
			if err := p.pprof.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("pprof server stopped", logger.Error(err))
			}
		}()
	}

	if cfg.PyroscopeEnabled {
		serverURL := cfg.PyroscopeURL
		if serverURL == "" {
			serverURL = defaultPyroscopeURL
		}
		hostname, _ := os.Hostname()
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: service,
			ServerAddress:   serverURL,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseSpace,
				pyroscope.ProfileGoroutines,
			},
			Tags: map[string]string{
				"environment": cfg.Environment,
				"version":     version,
				"hostname":    hostname,
				"go_version":  runtime.Version(),
			},
		})
		if err != nil {
			p.Stop()
			return nil, fmt.Errorf("start pyroscope: %w", err)
		}
		p.pyroscope = profiler
		log.Info("Pyroscope profiling started", logger.String("server", serverURL))
	}

	return p, nil
}

// Stop shuts down the running profilers. Safe on nil.
func (p *Profilers) Stop() {
	if p == nil {
		return
	}
	if p.pprof != nil {
		_ = p.pprof.Close()
	}
	if p.pyroscope != nil {
		_ = p.pyroscope.Stop()
	}
}
