package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRequest(cfg SwaggerConfig, remoteAddr string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "swagger")
	})

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SwaggerConfig
		remote string
		want   int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "10.0.0.1:1234", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "203.0.113.9:1234", http.StatusOK},
		{"exact IP", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:1234", http.StatusOK},
		{"CIDR", SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16"}}, "192.168.4.20:80", http.StatusOK},
		{"outside list", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1", "192.168.0.0/16"}}, "203.0.113.9:1234", http.StatusForbidden},
		{"garbage entries only", SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip", "300.0.0.0/8"}}, "10.0.0.1:1234", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, swaggerRequest(tt.cfg, tt.remote).Code)
		})
	}
}

func TestIsIPAllowed(t *testing.T) {
	_, network, _ := net.ParseCIDR("10.1.0.0/16")
	allowed := []net.IP{net.ParseIP("::1")}

	assert.True(t, isIPAllowed(net.ParseIP("::1"), allowed, nil))
	assert.True(t, isIPAllowed(net.ParseIP("10.1.2.3"), nil, []*net.IPNet{network}))
	assert.False(t, isIPAllowed(net.ParseIP("10.2.0.1"), allowed, []*net.IPNet{network}))
	assert.False(t, isIPAllowed(nil, allowed, nil))
}
