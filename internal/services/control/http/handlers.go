// Package http mounts the control plane: the loopback surface the chat
// front-end drives to create services, manage commands, grants, and
// verification. Everything except health and docs sits behind the admin key
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/platform/logger"
	pnet "bridgebot/internal/platform/net"
	phttp "bridgebot/internal/platform/net/http"
	mw "bridgebot/internal/platform/net/middleware"
	"bridgebot/internal/services/access"
	"bridgebot/internal/services/relay/domain"
	"bridgebot/internal/services/verify"
)

var nowFn = time.Now

// Deps wires the control plane to the services it fronts
type Deps struct {
	Registry domain.RegistryPort
	Gate     *access.Gate
	Verify   *verify.Service
	// AdminKey returns the static control-plane key; false disables all
	// gated routes
	AdminKey func() (string, bool)
	// Swagger enables the /docs UI
	Swagger   bool
	StartedAt time.Time
}

// CreateServiceRequest registers a new relay service
type CreateServiceRequest struct {
	GuildID     int64  `json:"guild_id"     validate:"required"`
	UserID      int64  `json:"user_id"      validate:"required"`
	ServiceName string `json:"service_name" validate:"required,min=1,max=64"`
}

// ReplaceCommandsRequest wholesale-replaces a service's command list
type ReplaceCommandsRequest struct {
	RequestedBy int64 `json:"requested_by" validate:"required"`
	// an empty list is a valid wholesale replace (clears every command)
	Commands []domain.CommandDefinition `json:"commands" validate:"dive"`
}

// AddCommandRequest appends one command definition
type AddCommandRequest struct {
	RequestedBy int64                    `json:"requested_by" validate:"required"`
	Command     domain.CommandDefinition `json:"command"      validate:"required"`
}

// GrantRequest records an access grant
type GrantRequest struct {
	GuildID   int64        `json:"guild_id"   validate:"required"`
	OwnerID   int64        `json:"owner_id"   validate:"required"`
	GranteeID int64        `json:"grantee_id" validate:"required"`
	Level     access.Level `json:"level"      validate:"required"`
}

// VerifyBeginRequest starts a verification attempt
type VerifyBeginRequest struct {
	ChatUserID int64  `json:"chat_user_id" validate:"required"`
	Username   string `json:"username"     validate:"required,min=3,max=20"`
}

// VerifyConfirmRequest completes a pending attempt
type VerifyConfirmRequest struct {
	ChatUserID int64 `json:"chat_user_id" validate:"required"`
}

// NewHandler builds the control plane handler
func NewHandler(d Deps) stdhttp.Handler {
	if d.StartedAt.IsZero() {
		d.StartedAt = nowFn()
	}
	r := phttp.NewRouter()

	r.Use(mw.RequestID())
	r.Use(mw.RealIP())
	r.Use(requestContext())
	r.Use(mw.RecoverJSON)
	r.Use(mw.AccessLog(mw.AccessLogOptions{Slow: time.Second}))
	r.Use(mw.CORS(mw.CORSOptions{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		MaxAge:         3600,
	}))

	phttp.GetJSON(r, "/health", func(req *stdhttp.Request) (any, error) {
		return map[string]any{
			"status":         "healthy",
			"services":       d.Registry.List(),
			"services_count": len(d.Registry.List()),
			"uptime_seconds": int64(nowFn().Sub(d.StartedAt).Seconds()),
			"timestamp":      nowFn().UTC().Format(time.RFC3339),
		}, nil
	})

	phttp.MountSwagger(r, d.Swagger, openAPIDoc)

	r.Group(func(g phttp.Router) {
		g.Use(mw.KeyAuth(d.AdminKey, mw.KeyAuthOptions{}))

		phttp.PostJSONCreated(g, "/services", func(req *stdhttp.Request, in CreateServiceRequest) (any, error) {
			return d.Registry.Create(req.Context(), domain.ServiceKey{
				GuildID: in.GuildID,
				UserID:  in.UserID,
				Name:    in.ServiceName,
			})
		})

		phttp.DeleteJSON(g, "/services/{service_id}", func(req *stdhttp.Request) (any, error) {
			id := chi.URLParam(req, "service_id")
			requester, err := queryID(req, "requested_by")
			if err != nil {
				return nil, err
			}
			if svc, ok := d.Registry.Get(id); ok {
				if err := d.authorize(svc, requester, access.LevelFull); err != nil {
					return nil, err
				}
			}
			// stopping an absent service is still a success
			if err := d.Registry.Stop(req.Context(), id); err != nil {
				return nil, err
			}
			return map[string]any{"status": "stopped", "service_id": id}, nil
		})

		phttp.PutJSON(g, "/services/{service_id}/commands",
			func(req *stdhttp.Request, in ReplaceCommandsRequest) (any, error) {
				id := chi.URLParam(req, "service_id")
				svc, ok := d.Registry.Get(id)
				if !ok {
					return nil, perr.NotFoundf("service %q not found", id)
				}
				if err := d.authorize(svc, in.RequestedBy, access.LevelFull); err != nil {
					return nil, err
				}
				if err := d.Registry.UpdateCommands(req.Context(), id, in.Commands); err != nil {
					return nil, err
				}
				return map[string]any{"status": "updated", "service_id": id, "commands": len(in.Commands)}, nil
			})

		phttp.PostJSON(g, "/services/{service_id}/commands",
			func(req *stdhttp.Request, in AddCommandRequest) (any, error) {
				id := chi.URLParam(req, "service_id")
				svc, ok := d.Registry.Get(id)
				if !ok {
					return nil, perr.NotFoundf("service %q not found", id)
				}
				if err := d.authorize(svc, in.RequestedBy, access.LevelFull); err != nil {
					return nil, err
				}
				if err := d.Registry.AddCommand(req.Context(), id, in.Command); err != nil {
					return nil, err
				}
				return map[string]any{"status": "added", "service_id": id, "command": in.Command.Name}, nil
			})

		phttp.PostJSON(g, "/grants", func(req *stdhttp.Request, in GrantRequest) (any, error) {
			if err := d.Gate.Grant(in.GuildID, in.OwnerID, in.GranteeID, in.Level); err != nil {
				return nil, err
			}
			return map[string]any{"status": "granted", "level": in.Level}, nil
		})

		phttp.DeleteJSON(g, "/grants", func(req *stdhttp.Request) (any, error) {
			guildID, err := queryID(req, "guild_id")
			if err != nil {
				return nil, err
			}
			ownerID, err := queryID(req, "owner_id")
			if err != nil {
				return nil, err
			}
			granteeID, err := queryID(req, "grantee_id")
			if err != nil {
				return nil, err
			}
			d.Gate.Revoke(guildID, ownerID, granteeID)
			return map[string]any{"status": "revoked"}, nil
		})

		phttp.PostJSON(g, "/verify", func(req *stdhttp.Request, in VerifyBeginRequest) (any, error) {
			return d.Verify.Begin(req.Context(), in.ChatUserID, in.Username)
		})

		phttp.PostJSON(g, "/verify/confirm", func(req *stdhttp.Request, in VerifyConfirmRequest) (any, error) {
			return d.Verify.Confirm(req.Context(), in.ChatUserID)
		})
	})

	return r.Mux()
}

// authorize checks the requester against the service owner and the grant
// table. Full access is required for anything that mutates a service
func (d Deps) authorize(svc domain.Service, requester int64, need access.Level) error {
	if d.Gate.Allowed(svc.Key.GuildID, svc.Key.UserID, requester, need) {
		return nil
	}
	return perr.Forbiddenf("user %d may not manage service %q", requester, svc.ID)
}

func queryID(req *stdhttp.Request, param string) (int64, error) {
	raw := req.URL.Query().Get(param)
	if raw == "" {
		return 0, perr.InvalidArgf("%s is required", param)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, perr.InvalidArgf("%s must be an integer", param)
	}
	return v, nil
}

func requestContext() func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			ctx := req.Context()
			ctx = logger.WithRequest(ctx, pnet.RequestID(ctx), "")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
