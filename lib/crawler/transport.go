package crawler

import (
	"context"
	"crypto/tls"
	"net/http/cookiejar"
	"sync"
	"time"

	"skufetch/lib/proxyconf"
	"skufetch/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Response is the raw result of one issued request.
type Response struct {
	Status int
	Body   []byte
}

// Transport is the capability consumed by the Fetcher to issue a single
// GET. One transport is shared across all identifiers of a run for
// connection reuse and must be closed exactly once afterwards.
type Transport interface {
	Issue(ctx context.Context, url string, headers map[string]string) (Response, error)
	Close()
}

type TransportOptions struct {
	// Proxy routes every request through an authenticated forward proxy.
	// Nil means direct connection.
	Proxy *proxyconf.Descriptor
	// Timeout is the per-request duration ceiling. An expired request
	// surfaces as a transport fault, never a hang. Defaults to 30s.
	Timeout time.Duration
	// InsecureSkipVerify disables certificate checks. Intercepting
	// proxies tend to present certificates the system store rejects.
	InsecureSkipVerify bool
}

// RestyTransport is the production Transport: a single resty client with a
// cookie jar, reused for its connection pool across the whole batch.
type RestyTransport struct {
	http      *resty.Client
	closeOnce sync.Once
}

func NewRestyTransport(opts TransportOptions) (*RestyTransport, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	if opts.Proxy != nil {
		client.SetProxy(opts.Proxy.URL())
	}
	if opts.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	telemetry.InstrumentResty(client, "crawler/http")

	return &RestyTransport{http: client}, nil
}

func (t *RestyTransport) Issue(ctx context.Context, url string, headers map[string]string) (Response, error) {
	res, err := t.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: res.StatusCode(), Body: res.Body()}, nil
}

// Close releases the shared connection pool. Safe to call on every exit
// path; only the first call does anything.
func (t *RestyTransport) Close() {
	t.closeOnce.Do(func() {
		t.http.GetClient().CloseIdleConnections()
	})
}
