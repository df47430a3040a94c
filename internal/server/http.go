package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/zeusync/posebridge/internal/core/observability/log"
)

type endpoint func(w http.ResponseWriter, r *http.Request) error

// Handler returns the full HTTP surface: CORS, panic recovery and routes.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = s.endpoint(func(_ http.ResponseWriter, r *http.Request) error {
		return notFound("no route for %s", r.URL.Path)
	})
	router.MethodNotAllowedHandler = s.endpoint(func(_ http.ResponseWriter, r *http.Request) error {
		return newError(KindMethodNotAllowed, nil, "method %s not allowed on %s", r.Method, r.URL.Path)
	})

	router.Handle("/status", s.endpoint(s.handleStatus)).Methods(http.MethodGet)
	router.Handle("/characters", s.endpoint(s.handleCharacters)).Methods(http.MethodGet)
	router.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	const character = "/character/{id:[0-9]+}"
	router.Handle(character+"/pose", s.endpoint(s.handleGetPose)).Methods(http.MethodGet)
	router.Handle(character+"/pose", s.endpoint(s.handleSetPose)).Methods(http.MethodPost, http.MethodPut)
	router.Handle(character+"/bones", s.endpoint(s.handleSetBones)).Methods(http.MethodPost, http.MethodPut)
	router.Handle(character+"/bones", s.endpoint(s.handleClearBones)).Methods(http.MethodDelete)
	router.Handle(character+"/transform", s.endpoint(s.handleGetTransform)).Methods(http.MethodGet)
	router.Handle(character+"/transform", s.endpoint(s.handleSetTransform)).Methods(http.MethodPost, http.MethodPut)

	return withCORS(s.recoverer(router))
}

// withCORS adds permissive cross-origin headers and answers every preflight.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
		h.Set("Access-Control-Expose-Headers", "ETag")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("Request panicked",
					log.String("method", r.Method),
					log.String("path", r.URL.Path),
					log.Error(fmt.Errorf("%v", rec)))
				s.writeError(w, r, newError(KindInternal, nil, "internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) endpoint(h endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, message := kindOf(err)
	status := kind.Status()

	fields := []log.Field{
		log.String("method", r.Method),
		log.String("path", r.URL.Path),
		log.Int("status", status),
		log.String("kind", kind.String()),
		log.Error(err),
	}
	if kind == KindInternal {
		s.logger.Error("Request failed", fields...)
	} else {
		s.logger.Debug("Request rejected", fields...)
	}

	writeJSON(w, status, errorResponse{Error: message, StatusCode: status})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":"encode response","statusCode":500}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// writeTagged writes raw JSON with a content ETag, answering 304 when the
// client already holds it.
func writeTagged(w http.ResponseWriter, r *http.Request, raw []byte) {
	etag := `W/"` + strconv.FormatUint(xxhash.Sum64(raw), 16) + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		return nil, invalidPayload(err, "unreadable request body")
	}
	if len(body) == 0 {
		return nil, invalidPayload(nil, "request body is empty")
	}
	return body, nil
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, into any) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return invalidPayload(err, "malformed JSON body")
	}
	return nil
}

func entityID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, notFound("unknown character %s", raw)
	}
	return id, nil
}
