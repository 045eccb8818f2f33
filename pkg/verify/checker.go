// Package verify probes a deployed site: the index document is served, the
// SPA fallback rewrites unknown paths to it and plain http is redirected.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wxve/chat-site/pkg/logger"
	"github.com/wxve/chat-site/pkg/observability"
	"github.com/wxve/chat-site/pkg/runid"
)

const (
	CheckRoot          = "root"
	CheckSPAFallback   = "spa-fallback"
	CheckHTTPSRedirect = "https-redirect"

	maxBodyBytes = 1 << 20
)

// Target is the pair of base URLs a run probes.
type Target struct {
	SecureURL   string
	InsecureURL string
}

// TargetFor derives the http base URL from the site's https URL.
func TargetFor(siteURL string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return Target{}, fmt.Errorf("parse site url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return Target{}, fmt.Errorf("site url %q must be an absolute https url", siteURL)
	}
	secure := strings.TrimRight(u.String(), "/")
	insecure := *u
	insecure.Scheme = "http"
	return Target{
		SecureURL:   secure,
		InsecureURL: strings.TrimRight(insecure.String(), "/"),
	}, nil
}

// Result is the outcome of one probe.
type Result struct {
	Check    string
	URL      string
	Status   int
	Location string
	Err      error
}

// Report collects the results of a run in probe order.
type Report struct {
	Target  Target
	Results []Result
}

func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// Err joins the errors of all failed probes.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Check, res.Err))
	}
	return errors.Join(errs...)
}

type Checker struct {
	client *http.Client
	ids    runid.IDGenerator
	log    observability.StructuredLogger
}

type Option func(*Checker)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

func WithIDGenerator(ids runid.IDGenerator) Option {
	return func(c *Checker) {
		if ids != nil {
			c.ids = ids
		}
	}
}

func WithLogger(log observability.StructuredLogger) Option {
	return func(c *Checker) {
		if log != nil {
			c.log = log
		}
	}
}

func NewChecker(options ...Option) *Checker {
	c := &Checker{
		client: &http.Client{Timeout: 15 * time.Second},
		ids:    runid.ULIDGenerator{},
		log:    logger.Logger(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	// Redirects are asserted, never followed.
	client := *c.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.client = &client
	return c
}

// Run executes every probe against target. It returns a report even when
// probes fail; only a cancelled context stops the run early. Every collected
// result is logged, including those of an interrupted run.
func (c *Checker) Run(ctx context.Context, target Target) (report Report) {
	if ctx == nil {
		ctx = context.Background()
	}
	report = Report{Target: target}
	defer func() { c.logResults(report) }()

	root, rootBody := c.expectOK(ctx, CheckRoot, target.SecureURL+"/")
	report.Results = append(report.Results, root)
	if ctx.Err() != nil {
		return report
	}

	fallback, fallbackBody := c.expectOK(ctx, CheckSPAFallback, target.SecureURL+"/"+c.ids.NewID())
	if fallback.Err == nil && root.Err == nil && !bytes.Equal(rootBody, fallbackBody) {
		fallback.Err = checkErrorf(ErrorCodeBodyMismatch, "unknown path did not serve the index document")
	}
	report.Results = append(report.Results, fallback)
	if ctx.Err() != nil {
		return report
	}

	report.Results = append(report.Results, c.expectHTTPSRedirect(ctx, target.InsecureURL+"/"))
	return report
}

func (c *Checker) logResults(report Report) {
	for _, res := range report.Results {
		fields := map[string]any{"check": res.Check, "url": res.URL, "status": res.Status}
		if res.Err != nil {
			fields["error"] = res.Err.Error()
			c.log.Error("check failed", fields)
			continue
		}
		c.log.Info("check passed", fields)
	}
}

func (c *Checker) expectOK(ctx context.Context, check, target string) (Result, []byte) {
	res := Result{Check: check, URL: target}
	resp, err := c.get(ctx, target)
	if err != nil {
		res.Err = checkErrorf(ErrorCodeRequestFailed, "%v", err)
		return res, nil
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		res.Err = checkErrorf(ErrorCodeRequestFailed, "read body: %v", err)
		return res, nil
	}
	if resp.StatusCode != http.StatusOK {
		res.Err = checkErrorf(ErrorCodeStatusMismatch, "expected 200, got %d", resp.StatusCode)
	}
	return res, body
}

func (c *Checker) expectHTTPSRedirect(ctx context.Context, target string) Result {
	res := Result{Check: CheckHTTPSRedirect, URL: target}
	resp, err := c.get(ctx, target)
	if err != nil {
		res.Err = checkErrorf(ErrorCodeRequestFailed, "%v", err)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	res.Status = resp.StatusCode
	res.Location = resp.Header.Get("Location")
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		res.Err = checkErrorf(ErrorCodeRedirectMismatch, "expected a redirect, got %d", resp.StatusCode)
		return res
	}
	if !strings.HasPrefix(res.Location, "https://") {
		res.Err = checkErrorf(ErrorCodeRedirectMismatch, "redirect location %q is not https", res.Location)
	}
	return res
}

func (c *Checker) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}
