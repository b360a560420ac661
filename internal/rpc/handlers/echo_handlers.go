package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/6529-Collections/arctic/pkg/jsonvalue"
	"go.uber.org/zap"
)

type StatusResponse struct {
	Status string `json:"status"`
}

// EchoPostHandler decodes the request body, writes it to a diagnostic stream
// and acknowledges unconditionally. The body never influences the response.
type EchoPostHandler struct {
	mu  sync.Mutex
	out io.Writer
}

func NewEchoPostHandler(out io.Writer) *EchoPostHandler {
	return &EchoPostHandler{out: out}
}

func (h *EchoPostHandler) Handle(r *http.Request) (StatusResponse, error) {
	body, err := jsonvalue.Decode(r.Body)
	if err != nil {
		return StatusResponse{}, BadRequest(fmt.Errorf("invalid JSON body: %w", err))
	}

	if err := h.writeDiagnostic(body); err != nil {
		zap.L().Warn("failed to write request body to diagnostic output", zap.Error(err))
	}

	return StatusResponse{Status: "OK"}, nil
}

// One line of compact JSON per request.
func (h *EchoPostHandler) writeDiagnostic(body any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}
