package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, cmds *lib.Commands, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, cmds, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Sugar().Errorw("HTTP server stopped", "err", err)
				}
			}()
			log.Sugar().Infow("HTTP server listening", "addr", addr)
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, cmds *lib.Commands, svc *lib.Service) http.Handler {
	ctrl := &controller{log, cmds, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("bountywatch", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Post("/poll", ctrl.poll)

		r.Route("/tenants/{tenant_id}", func(r chi.Router) {
			r.Get("/config", ctrl.viewConfig)
			r.Put("/config", ctrl.configure)

			r.Get("/users/{user_id}/subscriptions", ctrl.listSubscriptions)
			r.Post("/users/{user_id}/subscriptions", ctrl.subscribe)
			r.Delete("/users/{user_id}/subscriptions", ctrl.unsubscribe)
		})
	})

	return r
}

type controller struct {
	log  *zap.Logger
	cmds *lib.Commands
	svc  *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if b != nil {
			w.Write(b)
		}
	}
}

func (ctrl *controller) acknowledge(w http.ResponseWriter, ack lib.Ack) {
	ctrl.resolve(w, ackStatus(ack.Outcome), AckView{}.From(ack))
}

func ackStatus(outcome lib.Outcome) int {
	switch outcome {
	case lib.OutcomeOK:
		return http.StatusOK
	case lib.OutcomeExists:
		return http.StatusConflict
	case lib.OutcomeNotFound:
		return http.StatusNotFound
	case lib.OutcomeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func (ctrl *controller) viewConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")

	cfg, err := ctrl.svc.TenantConfig(ctx, tenantID)
	if err != nil {
		ctrl.log.Sugar().Errorw("Failed to read tenant config", "tenant", tenantID, "err", err)
		ctrl.reject(w, http.StatusServiceUnavailable, errors.New(lib.RetryMessage))
		return
	}
	if cfg == nil {
		ctrl.reject(w, http.StatusNotFound, errors.New("tenant is not configured"))
		return
	}
	ctrl.resolve(w, http.StatusOK, TenantConfigView{}.From(cfg))
}

func (ctrl *controller) configure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	destination := r.FormValue("destination")

	var group *string
	if g := r.FormValue("group"); g != "" {
		group = &g
	}

	ctrl.acknowledge(w, ctrl.cmds.Configure(ctx, tenantID, destination, group))
}

func (ctrl *controller) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	userID := chi.URLParam(r, "user_id")

	ctrl.acknowledge(w, ctrl.cmds.Subscribe(ctx, tenantID, userID, r.FormValue("location")))
}

func (ctrl *controller) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	userID := chi.URLParam(r, "user_id")

	ctrl.acknowledge(w, ctrl.cmds.Unsubscribe(ctx, tenantID, userID, r.FormValue("location")))
}

func (ctrl *controller) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	userID := chi.URLParam(r, "user_id")

	ctrl.acknowledge(w, ctrl.cmds.ListSubscriptions(ctx, tenantID, userID))
}

func (ctrl *controller) poll(w http.ResponseWriter, r *http.Request) {
	ctrl.acknowledge(w, ctrl.cmds.Poll(r.Context()))
}
