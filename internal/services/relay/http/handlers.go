// Package http mounts the per-service relay endpoints: the surface a game
// script polls and the chat bot triggers against
package http

import (
	"fmt"
	stdhttp "net/http"
	"time"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/platform/logger"
	pnet "bridgebot/internal/platform/net"
	phttp "bridgebot/internal/platform/net/http"
	mw "bridgebot/internal/platform/net/middleware"
	"bridgebot/internal/services/relay/domain"
)

// nowFn is a seam for time-dependent tests
var nowFn = time.Now

// TriggerRequest is the payload the chat bot posts to fire a command
type TriggerRequest struct {
	Command     string     `json:"command"      validate:"required,min=1,max=64"`
	Parameters  []string   `json:"parameters"   validate:"omitempty,max=5"`
	FullCommand string     `json:"full_command" validate:"omitempty,max=256"`
	TriggeredBy int64      `json:"triggered_by"`
	TriggeredAt *time.Time `json:"triggered_at"`
}

// AckRequest marks a delivered command as handled
type AckRequest struct {
	CommandID string `json:"command_id" validate:"required"`
}

// NewHandler builds the HTTP handler mounted on one service listener. The
// registry passes this as the handler factory at creation time
func NewHandler(view domain.ServiceView) stdhttp.Handler {
	r := phttp.NewRouter()

	r.Use(mw.RequestID())
	r.Use(mw.RealIP())
	r.Use(serviceContext(view))
	r.Use(mw.RecoverJSON)
	r.Use(mw.AccessLog(mw.AccessLogOptions{Slow: 500 * time.Millisecond}))
	r.Use(mw.CORS(mw.CORSOptions{MaxAge: 3600}))

	// health carries no secrets and stays reachable without a key
	r.Get("/health", phttp.JSONHandlerNoBody(func(req *stdhttp.Request) (any, error) {
		return health(view)
	}))

	apiKey := func() (string, bool) {
		svc, ok := view.Snapshot()
		if !ok {
			return "", false
		}
		return svc.APIKey, true
	}

	r.Group(func(g phttp.Router) {
		g.Use(mw.KeyAuth(apiKey, mw.KeyAuthOptions{}))

		g.Get("/commands", phttp.JSONHandlerNoBody(func(req *stdhttp.Request) (any, error) {
			return listCommands(view)
		}))
		g.Post("/trigger", phttp.JSONHandler(func(req *stdhttp.Request, in TriggerRequest) (any, error) {
			return trigger(req, view, in)
		}))
		g.Post("/acknowledge", phttp.JSONHandler(func(req *stdhttp.Request, in AckRequest) (any, error) {
			return acknowledge(view, in)
		}))
	})

	// polling clients cannot always set headers, so this one route also
	// accepts ?api_key=
	r.Group(func(g phttp.Router) {
		g.Use(mw.KeyAuth(apiKey, mw.KeyAuthOptions{AllowQuery: true}))

		g.Get("/triggered", phttp.JSONHandlerNoBody(func(req *stdhttp.Request) (any, error) {
			return triggered(view)
		}))
	})

	return r.Mux()
}

// serviceContext stamps the service id onto the request context so every
// log line downstream carries it
func serviceContext(view domain.ServiceView) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			ctx := req.Context()
			var sid string
			if svc, ok := view.Snapshot(); ok {
				sid = svc.ID
			}
			reqID := pnet.RequestID(ctx)
			ctx = pnet.WithRequest(ctx, "", sid)
			ctx = logger.WithRequest(ctx, reqID, sid)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func health(view domain.ServiceView) (any, error) {
	svc, ok := view.Snapshot()
	if !ok {
		return nil, perr.NotFoundf("service not found")
	}
	return map[string]any{
		"status":         "healthy",
		"service_name":   svc.Key.Name,
		"active":         svc.Active,
		"uptime_seconds": int64(nowFn().Sub(svc.CreatedAt).Seconds()),
		"commands_count": len(svc.ActiveCommands()),
		"queue_length":   view.QueueLen(),
		"timestamp":      nowFn().UTC().Format(time.RFC3339),
	}, nil
}

func listCommands(view domain.ServiceView) (any, error) {
	svc, ok := view.Snapshot()
	if !ok {
		return nil, perr.NotFoundf("service not found")
	}
	cmds := svc.ActiveCommands()
	return map[string]any{
		"commands":  cmds,
		"total":     len(cmds),
		"timestamp": nowFn().UTC().Format(time.RFC3339),
	}, nil
}

func trigger(req *stdhttp.Request, view domain.ServiceView, in TriggerRequest) (any, error) {
	now := nowFn().UTC()
	at := now
	if in.TriggeredAt != nil {
		at = in.TriggeredAt.UTC()
	}
	full := in.FullCommand
	if full == "" {
		full = in.Command
	}

	entry := domain.QueueEntry{
		CommandID:   fmt.Sprintf("%s_%d", in.Command, now.UnixMilli()),
		Command:     in.Command,
		Parameters:  in.Parameters,
		FullCommand: full,
		TriggeredBy: in.TriggeredBy,
		TriggeredAt: at,
	}
	view.Enqueue(entry)
	view.Sweep(now)

	logger.C(req.Context()).Info().
		Str("command_id", entry.CommandID).
		Str("command", entry.Command).
		Int64("triggered_by", entry.TriggeredBy).
		Msg("command triggered")

	return map[string]any{
		"status":     "success",
		"command_id": entry.CommandID,
		"timestamp":  now.Format(time.RFC3339),
	}, nil
}

func triggered(view domain.ServiceView) (any, error) {
	now := nowFn().UTC()
	pending := view.Pending(now)
	return map[string]any{
		"triggered_commands": pending,
		"count":              len(pending),
		"timestamp":          now.Format(time.RFC3339),
	}, nil
}

func acknowledge(view domain.ServiceView, in AckRequest) (any, error) {
	now := nowFn().UTC()
	entry, err := view.Acknowledge(in.CommandID, now)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":          "acknowledged",
		"command_id":      entry.CommandID,
		"acknowledged_at": entry.AcknowledgedAt.UTC().Format(time.RFC3339),
	}, nil
}
