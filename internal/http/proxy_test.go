package http

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/config"
)

const corpProxy = "proxy.corp:8080"

// routed reports whether the proxy func sends target through the proxy.
func routed(t *testing.T, noProxy, target string) bool {
	t.Helper()
	proxyURL := &url.URL{Scheme: "http", Host: corpProxy}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)

	got, err := proxyFuncWithBypass(proxyURL, noProxy)(req)
	require.NoError(t, err)
	if got == nil {
		return false
	}
	assert.Equal(t, corpProxy, got.Host)
	return true
}

func TestProxyFuncWithBypass(t *testing.T) {
	const (
		awsList = "https://reports.s3.eu-west-1.amazonaws.com/?list-type=2"
		minio   = "https://minio.example.com/bucket"
	)

	tests := []struct {
		name    string
		noProxy string
		target  string
		proxied bool
	}{
		{"empty list proxies everything", "", minio, true},
		{"wildcard domain", "*.example.com", minio, false},
		{"bare domain matches itself", "example.com", "https://example.com/bucket", false},
		{"bare domain matches subdomains", "example.com", minio, false},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3:9000/bucket", false},
		{"outside every rule", "*.internal.corp,10.0.0.0/8", awsList, true},
		{"list with spaces wildcard", "*.example.com, 192.168.0.0/16, internal.corp", minio, false},
		{"list with spaces cidr", "*.example.com, 192.168.0.0/16, internal.corp", "http://192.168.1.100/bucket", false},
		{"list with spaces domain", "*.example.com, 192.168.0.0/16, internal.corp", "https://internal.corp/status", false},
		{"list with spaces miss", "*.example.com, 192.168.0.0/16, internal.corp", awsList, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.proxied, routed(t, tt.noProxy, tt.target))
		})
	}
}

func TestConfigureHTTPClient_Modes(t *testing.T) {
	tests := []struct {
		name      string
		proxy     config.ProxySettings
		wantNTLM  bool
		wantProxy bool
		wantErr   bool
	}{
		{name: "none", proxy: config.ProxySettings{Mode: config.ProxyNone}},
		{name: "unset", proxy: config.ProxySettings{}},
		{name: "basic", proxy: config.ProxySettings{Mode: config.ProxyBasic, Host: "proxy.corp", Port: 3128}, wantProxy: true},
		{name: "basic upper case", proxy: config.ProxySettings{Mode: "BASIC", Host: "proxy.corp"}, wantProxy: true},
		{name: "basic without host connects directly", proxy: config.ProxySettings{Mode: config.ProxyBasic}},
		{name: "system", proxy: config.ProxySettings{Mode: config.ProxySystem}, wantProxy: true},
		{name: "ntlm", proxy: config.ProxySettings{Mode: config.ProxyNTLM, Host: "proxy.corp"}, wantNTLM: true},
		{name: "socks is rejected", proxy: config.ProxySettings{Mode: "socks5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := ConfigureHTTPClient(tt.proxy)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unsupported proxy mode")
				return
			}
			require.NoError(t, err)

			if tt.wantNTLM {
				assert.IsType(t, ntlmssp.Negotiator{}, client.Transport)
				return
			}
			tr, ok := client.Transport.(*http.Transport)
			require.True(t, ok, "transport is %T", client.Transport)
			assert.Equal(t, tt.wantProxy, tr.Proxy != nil)
			assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	u := buildProxyURL(config.ProxySettings{Host: "proxy.corp", User: "alice", Password: "pw"})
	assert.Equal(t, "http://alice:pw@proxy.corp:8080", u.String())

	// A user without a password is left out of the URL.
	u = buildProxyURL(config.ProxySettings{Host: "proxy.corp", Port: 3128, User: "alice"})
	assert.Equal(t, "http://proxy.corp:3128", u.String())

	u = buildProxyURL(config.ProxySettings{Host: "::1", Port: 3128})
	assert.Equal(t, "[::1]:3128", u.Host)
}

func TestNeedsProxyPassword(t *testing.T) {
	assert.False(t, NeedsProxyPassword(config.ProxySettings{Mode: config.ProxyNone, User: "alice"}))
	assert.True(t, NeedsProxyPassword(config.ProxySettings{Mode: config.ProxyBasic, User: "alice"}))
	assert.True(t, NeedsProxyPassword(config.ProxySettings{Mode: "NTLM", User: "alice"}))
	assert.False(t, NeedsProxyPassword(config.ProxySettings{Mode: config.ProxyNTLM, User: "alice", Password: "pw"}))
	assert.False(t, NeedsProxyPassword(config.ProxySettings{Mode: config.ProxyNTLM}))
}

func TestProxyActive(t *testing.T) {
	assert.False(t, proxyActive(config.ProxySettings{}))
	assert.False(t, proxyActive(config.ProxySettings{Mode: config.ProxyBasic}))
	assert.True(t, proxyActive(config.ProxySettings{Mode: config.ProxyNTLM, Host: "proxy.corp"}))
}

func TestCreateStorageClient_HTTP2(t *testing.T) {
	proxied, err := CreateStorageClient(config.ProxySettings{Mode: config.ProxyBasic, Host: "proxy.corp"})
	require.NoError(t, err)
	tr := proxied.Transport.(*http.Transport)
	assert.False(t, tr.ForceAttemptHTTP2, "HTTP/2 is off behind a proxy")
	assert.Zero(t, proxied.Timeout, "large downloads must not hit a client timeout")

	direct, err := CreateStorageClient(config.ProxySettings{Mode: config.ProxyNone})
	require.NoError(t, err)
	if os.Getenv("DISABLE_HTTP2") != "true" {
		assert.True(t, direct.Transport.(*http.Transport).ForceAttemptHTTP2)
	}
}
