package http

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/logging"
)

var log = logging.NewLogger("http", nil)

// newTransport returns the base transport shared by every client.
func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          constants.HTTPMaxIdleConnsPerHost * 4,
		MaxIdleConnsPerHost:   constants.HTTPMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: constants.HTTPResponseHeaderTimeout,
	}
}

// ConfigureHTTPClient builds a client honouring the proxy settings.
// An NTLM proxy wraps the transport in a negotiator, so the returned
// client's Transport is not always an *http.Transport.
func ConfigureHTTPClient(proxy config.ProxySettings) (*nethttp.Client, error) {
	transport := newTransport()

	switch strings.ToLower(proxy.Mode) {
	case config.ProxyNone, "":
		transport.Proxy = nil

	case config.ProxySystem:
		transport.Proxy = nethttp.ProxyFromEnvironment

	case config.ProxyBasic, config.ProxyNTLM:
		// Incomplete saved config falls back to direct so the user can fix it from the UI.
		if proxy.Host == "" {
			log.Warn().Str("mode", proxy.Mode).Msg("proxy host is missing, connecting directly")
			transport.Proxy = nil
			return &nethttp.Client{Transport: transport}, nil
		}
		if proxy.User != "" && proxy.Password == "" {
			log.Warn().Str("user", proxy.User).Msg("proxy password missing, proxy auth disabled until it is set")
		}

		transport.Proxy = proxyFuncWithBypass(buildProxyURL(proxy), proxy.NoProxy)
		if strings.ToLower(proxy.Mode) == config.ProxyNTLM {
			return &nethttp.Client{
				Transport: ntlmssp.Negotiator{RoundTripper: transport},
			}, nil
		}

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", proxy.Mode)
	}

	return &nethttp.Client{Transport: transport}, nil
}

func buildProxyURL(proxy config.ProxySettings) *url.URL {
	port := proxy.Port
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(proxy.Host, fmt.Sprint(port)),
	}

	// Empty passwords in the URL break some proxies.
	if proxy.User != "" && proxy.Password != "" {
		proxyURL.User = url.UserPassword(proxy.User, proxy.Password)
	}

	return proxyURL
}

// proxyFuncWithBypass routes every request through proxyURL except hosts
// matched by the comma-separated noProxy list (domains, IPs, CIDRs).
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			log.Debug().Str("host", req.URL.Host).Msg("proxy bypass")
		}
		return result, err
	}
}

// NeedsProxyPassword reports whether an interactive password prompt is needed.
func NeedsProxyPassword(proxy config.ProxySettings) bool {
	mode := strings.ToLower(proxy.Mode)
	if mode != config.ProxyBasic && mode != config.ProxyNTLM {
		return false
	}
	return proxy.User != "" && proxy.Password == ""
}

// proxyActive reports whether requests from this config go through a proxy.
func proxyActive(proxy config.ProxySettings) bool {
	switch strings.ToLower(proxy.Mode) {
	case config.ProxyNone, "":
		return false
	case config.ProxySystem:
		env := httpproxy.FromEnvironment()
		return env.HTTPProxy != "" || env.HTTPSProxy != ""
	default:
		return proxy.Host != ""
	}
}
