package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

// Endpoint describes one marketplace request independent of transport.
type Endpoint struct {
	Platform platform.Platform
	Path     string
	Method   string
	Headers  map[string]string
	Body     []byte
}

// NewEndpoint describes a request without a body.
func NewEndpoint(p platform.Platform, method, path string) Endpoint {
	return Endpoint{
		Platform: p,
		Path:     path,
		Method:   method,
		Headers:  map[string]string{"Accept": "application/json"},
	}
}

// JSONEndpoint describes a request whose body is payload encoded as JSON.
func JSONEndpoint(p platform.Platform, method, path string, payload any) (Endpoint, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Endpoint{}, fmt.Errorf("encode %s %s body: %w", method, path, err)
	}

	ep := NewEndpoint(p, method, path)
	ep.Headers["Content-Type"] = "application/json"
	ep.Body = body
	return ep, nil
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s %s %s", e.Platform, e.Method, e.Path)
}

func (e Endpoint) method() string {
	if e.Method == "" {
		return http.MethodGet
	}
	return e.Method
}
