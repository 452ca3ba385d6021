package gateway

import (
	"context"
	"net/http"
)

// forwardedHeaders are copied from the client request to the upstream
// service. Cookie and Authorization carry the session.
var forwardedHeaders = []string{"Content-Type", "Accept", "Accept-Language", "Cookie", "Authorization"}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

// NewServiceProxy never follows upstream redirects; they are relayed to the
// browser as they are.
func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &ServiceProxy{
		baseURL: baseURL,
		client:  &c,
	}
}

func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = r.ContentLength

	for _, name := range forwardedHeaders {
		for _, v := range r.Header.Values(name) {
			req.Header.Add(name, v)
		}
	}
	if r.RemoteAddr != "" {
		req.Header.Set("X-Forwarded-For", r.RemoteAddr)
	}

	return p.client.Do(req)
}
