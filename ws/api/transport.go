// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package api contains the WebSocket handshake of controller connections.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/controllers"
	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/ws"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	tokenProtocol  = "token"
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{tokenProtocol},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// MakeHandler returns http handler with handshake endpoint.
func MakeHandler(svc ws.Service, ctrls controllers.Service, logger *slog.Logger, svcName, instanceID string) http.Handler {
	mux := chi.NewRouter()
	mux.Get("/controllers/ws", handshake(svc, ctrls, logger))
	mux.Get("/health", farmgate.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func handshake(svc ws.Service, ctrls controllers.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := controllerKey(r)
		if key == "" {
			logger.Debug("Missing controller key")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		id, err := ctrls.Identify(r.Context(), key)
		if err != nil {
			encodeError(w, logger, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Failed to upgrade connection to websocket", slog.String("controller_id", id), slog.Any("error", err))
			return
		}
		conn.SetReadLimit(maxMessageSize)

		client := ws.NewClient(conn)
		svc.Connect(r.Context(), id, client)
		serve(r.Context(), svc, id, conn, client, logger)
		svc.Disconnect(r.Context(), id, client)
	}
}

// serve reads messages until the connection ends or a message fails.
func serve(ctx context.Context, svc ws.Service, id string, conn *websocket.Conn, client *ws.Client, logger *slog.Logger) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, ws.CloseSuperseded) {
				logger.Warn("Failed to read message", slog.String("controller_id", id), slog.Any("error", err))
			}
			_ = conn.Close()
			return
		}

		if err := svc.Handle(ctx, id, payload); err != nil {
			if serr := client.Send(protocol.ErrorFrame(err)); serr != nil {
				logger.Debug("Failed to send error frame", slog.String("controller_id", id), slog.Any("error", serr))
			}
			_ = client.Close(closeCode(err), err.Error())
			return
		}
	}
}

// controllerKey reads the key from the Authorization header or from the
// "token, <key>" subprotocol pair browsers send.
func controllerKey(r *http.Request) string {
	if key := apiutil.ExtractControllerKey(r); key != "" {
		return key
	}
	protocols := websocket.Subprotocols(r)
	if len(protocols) == 2 && protocols[0] == tokenProtocol {
		return strings.TrimSpace(protocols[1])
	}

	return ""
}

func closeCode(err error) int {
	switch {
	case errors.Contains(err, protocol.ErrMalformedPayload),
		errors.Contains(err, protocol.ErrInvalidData):
		return websocket.ClosePolicyViolation
	default:
		return ws.CloseHandlingError
	}
}

func encodeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	if errors.Contains(err, svcerr.ErrAuthentication) {
		status = http.StatusUnauthorized
	}
	logger.Warn("Failed to identify controller", slog.Any("error", err))
	w.WriteHeader(status)
}
