package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "203.0.113.5"},
		{"forwarded chain takes first", map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.2"}, "203.0.113.5"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "2001:db8::5"}, "2001:db8::5"},
		{"empty forwarded entry", map[string]string{"X-Forwarded-For": ", 10.0.0.2", "X-Real-IP": "2.2.2.2"}, "2.2.2.2"},
		{"no headers", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIdentity(req))
		})
	}
}

func TestGetClientIdentityPrefersContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "2.2.2.2")
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "2.2.2.2", GetClientIdentity(c))
	SetClientIdentity(c, "9.9.9.9")
	assert.Equal(t, "9.9.9.9", GetClientIdentity(c))
}
