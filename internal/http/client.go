package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/objectdesk/objectdesk/internal/config"
)

// CreateStorageClient returns the client used for object transfers.
//
// HTTP/2 is negotiated on direct connections and disabled behind a proxy,
// where multiplexed streams tend to fail mid-transfer. DISABLE_HTTP2=true
// forces HTTP/1.1 everywhere; FORCE_HTTP2=true keeps HTTP/2 behind a proxy.
func CreateStorageClient(proxy config.ProxySettings) (*nethttp.Client, error) {
	client, err := ConfigureHTTPClient(proxy)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM negotiator; leave its transport alone.
		return client, nil
	}

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Debug().Err(err).Msg("http2 transport configuration skipped")
	}

	if os.Getenv("DISABLE_HTTP2") == "true" ||
		(proxyActive(proxy) && os.Getenv("FORCE_HTTP2") != "true") {
		disableHTTP2(tr)
	}

	// Per-operation deadlines come from the caller's context.
	client.Timeout = 0
	return client, nil
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}
