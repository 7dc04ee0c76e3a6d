package render

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/quotedesk/quotedesk/internal/quotation"
)

const (
	maxImageBytes    = 2 << 20
	maxParallelFetch = 4
)

var (
	errNotImage       = errors.New("not an image")
	errImageTooLarge  = errors.New("image too large")
	errBlockedAddress = errors.New("image host resolves to a non-public address")
)

// sharedAddressSpace is the carrier-grade NAT range, which netip does not
// report as private.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher loads the images referenced by a quotation.
type Fetcher struct {
	client  *resty.Client
	timeout time.Duration
	logger  *slog.Logger
}

type fetcherOptions struct {
	allowPrivate bool
}

// FetcherOption adjusts a Fetcher.
type FetcherOption func(*fetcherOptions)

// AllowPrivateNetworks lets logos load from loopback, private and link-local
// addresses. Logo URLs are user input, so this is for trusted deployments only.
func AllowPrivateNetworks(allow bool) FetcherOption {
	return func(o *fetcherOptions) { o.allowPrivate = allow }
}

// NewFetcher builds a Fetcher; timeout bounds each image separately. By
// default only public addresses are dialled, checked after DNS resolution
// and on every redirect hop.
func NewFetcher(timeout time.Duration, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	client := resty.New().
		SetTransport(imageTransport(o.allowPrivate)).
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)).
		SetHeader("Accept", "image/*")
	return &Fetcher{client: client, timeout: timeout, logger: logger}
}

func imageTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = rejectNonPublic
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would be the dialled address and hide the real target
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return transport
}

// rejectNonPublic runs on the resolved address right before connecting.
func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublicAddr(addr) {
		return fmt.Errorf("%w: %s", errBlockedAddress, addr)
	}
	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

// Fetch resolves every image reference of q and waits for all of them.
// An image that fails or times out is left nil; Fetch itself never fails.
func (f *Fetcher) Fetch(ctx context.Context, q quotation.Quotation) Assets {
	var assets Assets
	targets := []struct {
		src  string
		dest **Image
	}{
		{q.Company.LogoURL, &assets.CompanyLogo},
		{q.Client.LogoURL, &assets.ClientLogo},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetch)
	for _, t := range targets {
		if strings.TrimSpace(t.src) == "" {
			continue
		}
		t := t
		g.Go(func() error {
			img, err := f.fetchOne(gctx, t.src)
			if err != nil {
				f.logger.Warn("quotation image skipped",
					slog.String("quotation_id", q.QuotationID),
					slog.String("src", t.src),
					slog.Any("error", err))
				return nil
			}
			*t.dest = img
			return nil
		})
	}
	_ = g.Wait()
	return assets
}

func (f *Fetcher) fetchOne(ctx context.Context, src string) (*Image, error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported image url %q", src)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(src)
	if err != nil {
		return nil, err
	}
	raw := resp.RawBody()
	defer raw.Close()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("image response %d", resp.StatusCode())
	}
	if resp.RawResponse.ContentLength > maxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes announced", errImageTooLarge, resp.RawResponse.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(raw, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, errImageTooLarge
	}
	if len(body) == 0 {
		return nil, errors.New("empty image")
	}
	return newImage(resp.Header().Get("Content-Type"), body)
}

func newImage(contentType string, data []byte) (*Image, error) {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		contentType = sniffed
	} else {
		contentType, _, _ = strings.Cut(contentType, ";")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errNotImage
	}
	return &Image{ContentType: contentType, Data: data}, nil
}

func decodeDataURI(src string) (*Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("malformed data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image size %d out of range", len(data))
	}
	return newImage(strings.TrimSuffix(meta, ";base64"), data)
}
