package parser

import (
	"net/http"
	"net/http/httptest"
)

// routeTransport serves requests in-process, keyed by host plus path.
type routeTransport map[string]http.HandlerFunc

func (rt routeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	if h, ok := rt[req.URL.Host+req.URL.Path]; ok {
		h(rec, req)
	} else {
		http.NotFound(rec, req)
	}
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func newRoutedClient(routes routeTransport) *http.Client {
	return &http.Client{Transport: routes}
}

func htmlPage(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
