package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/platform/auth"
)

// SubmitGuard lets one submission of a given form run at a time per user.
// A second identical POST/PUT arriving while the first is still in flight
// is rejected with 409 instead of writing the record twice.
type SubmitGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{inflight: make(map[string]struct{})}
}

func (g *SubmitGuard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

func (g *SubmitGuard) release(key string) {
	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
}

// InFlight returns the number of submissions currently running.
func (g *SubmitGuard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

func guarded(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// submissionKey identifies a form submission by user, method, path and body.
// Multipart uploads are keyed without their body.
func submissionKey(c echo.Context) (string, error) {
	req := c.Request()
	who := auth.UserIDFromContext(req.Context())
	if who == "" {
		who = c.RealIP()
	}
	h := sha256.New()
	io.WriteString(h, who+"\x00"+req.Method+"\x00"+req.URL.Path+"\x00")

	if req.Body != nil && !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return "", err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		h.Write(body)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (g *SubmitGuard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !guarded(c.Request().Method) {
				return next(c)
			}
			key, err := submissionKey(c)
			if err != nil {
				return err
			}
			if !g.acquire(key) {
				return echo.NewHTTPError(http.StatusConflict, "this form is already being submitted")
			}
			defer g.release(key)
			return next(c)
		}
	}
}
