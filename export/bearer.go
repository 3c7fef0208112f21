package export

import (
	"fmt"
	"net/http"
)

// bearerTransport adds an Authorization header to every request.
type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid side effects
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.token))
	return t.base.RoundTrip(reqClone)
}

// newHTTPClient returns a client that authenticates with token, or a plain client
// when token is empty.
func newHTTPClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Transport: http.DefaultTransport}
	}
	return &http.Client{
		Transport: &bearerTransport{
			base:  http.DefaultTransport,
			token: token,
		},
	}
}
