package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"dn_farming/internal/modules/config"
	"dn_farming/internal/modules/health/service"
)

type HTTPConfig struct {
	Addr string // например ":8080"
}

func NewHTTPConfig(cfg *config.Config) HTTPConfig {
	if cfg.Service.AdminPort != 0 {
		return HTTPConfig{Addr: fmt.Sprintf(":%d", cfg.Service.AdminPort)}
	}
	return HTTPConfig{Addr: ":8080"}
}

func NewMux(state *service.State) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: оба стрима подняты, клиенты инициализированы
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// полезный JSON для отладки
		cycleNum, cyclePhase := state.Cycle()
		resp := map[string]any{
			"ready":      state.Ready(),
			"extendedWS": state.ExtendedWS(),
			"lighterWS":  state.LighterWS(),
			"cycle":      cycleNum,
			"cyclePhase": cyclePhase,
			"uptimeSec":  int64(state.Uptime().Seconds()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg HTTPConfig, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewHTTPConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
