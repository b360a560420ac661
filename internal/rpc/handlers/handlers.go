package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type Method string
type Path string

var (
	HTTP_GET    Method = "GET"
	HTTP_POST   Method = "POST"
	HTTP_PUT    Method = "PUT"
	HTTP_DELETE Method = "DELETE"
)

const ApiPath Path = "/api"

// HTTPError carries the status code a handler wants returned to the caller.
type HTTPError struct {
	Code int
	Err  error
}

func (e *HTTPError) Error() string {
	return e.Err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func BadRequest(err error) error {
	return &HTTPError{Code: http.StatusBadRequest, Err: err}
}

type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type MethodHandlers map[Path]map[Method]func(r *http.Request) (any, error)

func SetupHandlers(mux *http.ServeMux, handlers MethodHandlers) {
	for path, methodHandlers := range handlers {
		allow := allowedMethods(methodHandlers)
		mux.HandleFunc(string(path), func(w http.ResponseWriter, r *http.Request) {
			handler, ok := methodHandlers[Method(r.Method)]
			if !ok {
				w.Header().Set("Allow", allow)
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
				return
			}
			resp, err := handler(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if resp != nil {
				err := json.NewEncoder(w).Encode(resp)
				if err != nil {
					zap.L().Error("failed to encode response", zap.Error(err))
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
	}
	if code >= http.StatusInternalServerError {
		zap.L().Error("failed to handle request", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		zap.L().Warn("rejected request", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Status: "ERROR", Error: err.Error()})
}

func allowedMethods(methodHandlers map[Method]func(r *http.Request) (any, error)) string {
	methods := make([]string, 0, len(methodHandlers))
	for m := range methodHandlers {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
