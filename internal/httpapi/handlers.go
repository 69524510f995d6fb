package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/engine"
	"github.com/DoyleJ11/shootout-backend/internal/hub"
	"github.com/DoyleJ11/shootout-backend/internal/room"
)

const codeLength = 6

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				log.Error("generate room code", zap.Error(err))
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			if h.Get(r.Context(), c) == nil {
				code = c
				break
			}
			log.Debug("collision on code, regenerating", zap.String("room", c))
		}

		reply := make(chan *room.Room, 1)
		if !h.Send(r.Context(), hub.EnsureRoom{Code: code, Reply: reply}) || <-reply == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

type roomView struct {
	Code    string          `json:"code"`
	Version int             `json:"version"`
	Peers   int             `json:"peers"`
	State   engine.Snapshot `json:"state"`
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		rm := h.Get(r.Context(), code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		reply := make(chan room.View, 1)
		if !rm.Send(r.Context(), room.GetState{Reply: reply}) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		select {
		case v := <-reply:
			writeJSON(w, http.StatusOK, roomView{Code: v.Code, Version: v.Version, Peers: v.NumPeers, State: v.State})
		case <-rm.Done():
			http.Error(w, "room not found", http.StatusNotFound)
		case <-r.Context().Done():
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
