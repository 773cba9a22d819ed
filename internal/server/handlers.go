package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/illarion/pbetool/internal/crypto"
	"github.com/rs/zerolog"
)

type Handler struct {
	format        crypto.Format
	iterations    int
	maxIterations int
	metrics       *Metrics
	log           zerolog.Logger
}

// NewHandler returns the API handlers. maxIterations caps the count a
// pbkdf2v envelope may request, since requests are unauthenticated.
func NewHandler(format crypto.Format, iterations, maxIterations int, m *Metrics, log zerolog.Logger) *Handler {
	return &Handler{format: format, iterations: iterations, maxIterations: maxIterations, metrics: m, log: log}
}

type EncryptRequest struct {
	Password string `json:"password"`
	Text     string `json:"text"`
	Format   string `json:"format,omitempty"`
}

type EncryptResponse struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type DecryptRequest struct {
	Password string `json:"password"`
	Data     string `json:"data"`
	Format   string `json:"format,omitempty"`
}

type DecryptResponse struct {
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.metrics.WriteJSON(w)
}

func (h *Handler) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if !h.decode(w, r, &req) {
		return
	}

	codec, err := h.codec(req.Format)
	if err != nil {
		h.cryptoError(w, r, err)
		return
	}

	start := time.Now()
	data, err := codec.EncryptString(req.Password, req.Text)
	h.metrics.observeEncrypt(start, err)
	if err != nil {
		h.cryptoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EncryptResponse{Data: data, Format: codec.Format().String()})
}

func (h *Handler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if !h.decode(w, r, &req) {
		return
	}

	codec, err := h.codec(req.Format)
	if err != nil {
		h.cryptoError(w, r, err)
		return
	}

	start := time.Now()
	text, err := codec.DecryptString(req.Password, req.Data)
	h.metrics.observeDecrypt(start, err)
	if err != nil {
		h.cryptoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DecryptResponse{Text: text})
}

func (h *Handler) codec(name string) (*crypto.Codec, error) {
	format := h.format
	if name != "" {
		f, err := crypto.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		format = f
	}
	return crypto.New(format, crypto.WithIterations(h.iterations), crypto.WithMaxIterations(h.maxIterations))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// cryptoError maps crypto sentinel errors to status codes. Messages come
// from the error chain, which never includes passwords or keys.
func (h *Handler) cryptoError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, crypto.ErrInvalidArgument),
		errors.Is(err, crypto.ErrFormat),
		errors.Is(err, crypto.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, crypto.ErrCrypto), errors.Is(err, crypto.ErrDecode):
		status = http.StatusUnprocessableEntity
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("crypto failure")
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
