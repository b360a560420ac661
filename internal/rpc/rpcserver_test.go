package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func startTestServer(t *testing.T, diag io.Writer) (int, func()) {
	t.Helper()
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	closeFunc, err := StartRPCServer(ctx, "127.0.0.1", port, diag)
	require.NoError(t, err)
	return port, closeFunc
}

func TestStartRPCServer_StartAndClose(t *testing.T) {
	diag := &syncBuffer{}
	port, closeFunc := startTestServer(t, diag)
	defer closeFunc()

	url := fmt.Sprintf("http://127.0.0.1:%d/api", port)
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"a": 1, "b": [1,2,3]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"status": "OK"}`, string(bodyBytes))

	// Now close the server
	start := time.Now()
	closeFunc()
	elapsed := time.Since(start)
	require.Less(t, elapsed, 5*time.Second, "server shutdown took too long")

	require.Equal(t, `{"a":1,"b":[1,2,3]}`+"\n", diag.String())

	_, err = http.Post(url, "application/json", strings.NewReader(`{}`))
	require.Error(t, err, "expected error after server shutdown, got none")
}

func TestStartRPCServer_CloseAfterContextCanceled(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	closeFunc, err := StartRPCServer(ctx, "127.0.0.1", port, io.Discard)
	require.NoError(t, err)

	cancel()
	closeFunc()

	_, err = http.Post(fmt.Sprintf("http://127.0.0.1:%d/api", port), "application/json", strings.NewReader(`{}`))
	require.Error(t, err)
}

func TestStartRPCServer_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	closeFunc, err := StartRPCServer(context.Background(), "127.0.0.1", port, io.Discard)
	require.Error(t, err)
	require.Nil(t, closeFunc)
}

func TestStartRPCServer_Routes(t *testing.T) {
	port, closeFunc := startTestServer(t, io.Discard)
	defer closeFunc()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	testCases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"EmptyObject", http.MethodPost, "/api", `{}`, http.StatusOK},
		{"NonJSON", http.MethodPost, "/api", `hello`, http.StatusBadRequest},
		{"GetNotAllowed", http.MethodGet, "/api", ``, http.StatusMethodNotAllowed},
		{"PutNotAllowed", http.MethodPut, "/api", `{}`, http.StatusMethodNotAllowed},
		{"UnknownPath", http.MethodPost, "/other", `{}`, http.StatusNotFound},
		{"TrailingSlash", http.MethodPost, "/api/", `{}`, http.StatusNotFound},
		{"Root", http.MethodGet, "/", ``, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, base+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestNewRouter_MalformedBodyErrorPayload(t *testing.T) {
	port, closeFunc := startTestServer(t, io.Discard)
	defer closeFunc()

	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/api", port), "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(bodyBytes), `"status":"ERROR"`)
	require.Contains(t, string(bodyBytes), "invalid JSON body")
}

func TestResponseWriter_StatusCodeCapture(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	originalLogger := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	defer zap.ReplaceGlobals(originalLogger)

	port, closeFunc := startTestServer(t, io.Discard)
	defer closeFunc()

	url := fmt.Sprintf("http://127.0.0.1:%d/api", port)
	resp, err := http.Get(url)
	require.NoError(t, err)
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// The log entry is written after the response is flushed
	require.Eventually(t, func() bool {
		return logs.FilterMessage("Request").Len() > 0
	}, time.Second, 10*time.Millisecond)

	entry := logs.FilterMessage("Request").All()[0]
	fields := entry.ContextMap()
	require.NotEmpty(t, fields["ip"])
	require.Equal(t, http.MethodGet, fields["method"])
	require.Equal(t, "/api", fields["path"])
	require.Equal(t, int64(http.StatusMethodNotAllowed), fields["status"])
}

func TestServer_ConcurrentRequests(t *testing.T) {
	port, closeFunc := startTestServer(t, io.Discard)
	defer closeFunc()

	url := fmt.Sprintf("http://127.0.0.1:%d/api", port)

	const numRequests = 10
	errChan := make(chan error, numRequests)

	for i := 0; i < numRequests; i++ {
		go func(i int) {
			body := fmt.Sprintf(`{"request": %d}`, i)
			resp, err := http.Post(url, "application/json", strings.NewReader(body))
			if err != nil {
				errChan <- fmt.Errorf("failed to connect: %v", err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				errChan <- fmt.Errorf("expected 200, got %d", resp.StatusCode)
				return
			}
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				errChan <- fmt.Errorf("failed to read body: %v", err)
				return
			}
			if strings.TrimSpace(string(b)) != `{"status":"OK"}` {
				errChan <- fmt.Errorf("unexpected body %q", b)
				return
			}
			errChan <- nil
		}(i)
	}

	for i := 0; i < numRequests; i++ {
		require.NoError(t, <-errChan)
	}
}
