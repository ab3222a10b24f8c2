// Package hrerp holds the scraping client for the HR ERP web
// application: an authenticated resty session plus the page-shape
// specific extraction helpers the harvester builds on.
package hrerp

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"erpharvest/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/hrerp")

var ErrLoginFailed = fmt.Errorf("failed to login to the ERP system")
var ErrBadStatus = fmt.Errorf("unexpected response status")

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	BaseUrl string
	// per-request timeout, defaults to 30s
	Timeout time.Duration
	// fetch retry policy: fixed attempt count with a fixed wait in
	// between, applied by resty to page loads and downloads only.
	// parse failures are never retried.
	MaxRetries int
	RetryWait  time.Duration
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	retryWait := opts.RetryWait
	if retryWait == 0 {
		retryWait = time.Second * 5
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(timeout)
	client.SetRetryCount(opts.MaxRetries)
	client.SetRetryWaitTime(retryWait)
	client.SetRetryMaxWaitTime(retryWait)

	telemetry.InstrumentResty(client, "scrapers/hrerp/http")

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

// Login performs the login form dance and verifies the landing page.
// The session cookie is held by the client's jar afterwards, every
// later fetch rides on it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/login")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return err
	}

	form := map[string]string{
		"username": username,
		"password": password,
	}
	// some deployments guard the form with a hidden csrf token
	if token := doc.Find("input[name=_token]").AttrOr("value", ""); token != "" {
		form["_token"] = token
	}

	_, err = c.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	res, err = c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request dashboard after login")
		return err
	}
	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse dashboard html")
		return err
	}

	if len(doc.Find("form[action*='login'] input[type=password]").Nodes) > 0 {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}

	return nil
}

// FetchPage loads a page by its site-relative path. Any transport error
// or non-2xx status comes back as an error, the caller classifies both
// as connection failures.
func (c *Client) FetchPage(ctx context.Context, path string) ([]byte, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %d fetching %s", ErrBadStatus, res.StatusCode(), path)
	}
	return res.Body(), nil
}

// AbsoluteURL resolves a site-relative path against the base url, for
// report output and error context.
func (c *Client) AbsoluteURL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return c.BaseUrl.ResolveReference(ref).String()
}
