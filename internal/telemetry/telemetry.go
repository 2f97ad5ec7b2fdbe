// Package telemetry reports transforms to New Relic when a license key is configured.
// A Reporter without an application is valid; every method is then a no-op, because
// the agent's Application, Transaction and Segment types are nil-safe.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TransactionName names the transaction recorded for each transformed file.
const TransactionName = "codegen/transform"

// Config selects whether and how transforms are reported.
type Config struct {
	AppName string
	License string
	Enabled bool
}

// Reporter records transforms.
type Reporter struct {
	app *newrelic.Application
}

// New connects a reporter. Disabled configs and configs without a license yield a
// no-op reporter.
func New(cfg Config) (*Reporter, error) {
	if !cfg.Enabled || cfg.License == "" {
		return &Reporter{}, nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.License),
		newrelic.ConfigEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("starting New Relic agent: %w", err)
	}
	return &Reporter{app: app}, nil
}

// Enabled reports whether transforms are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r != nil && r.app != nil
}

// StartFile begins the transaction of one file transform and stores it in the
// returned context.
func (r *Reporter) StartFile(ctx context.Context, file string) (context.Context, *newrelic.Transaction) {
	var app *newrelic.Application
	if r != nil {
		app = r.app
	}
	txn := app.StartTransaction(TransactionName)
	txn.AddAttribute("file", file)
	return newrelic.NewContext(ctx, txn), txn
}

// StartSite begins a segment for one site of the file transform in ctx. The returned
// function ends it.
func StartSite(ctx context.Context, kind string) func() {
	seg := newrelic.FromContext(ctx).StartSegment(kind)
	return seg.End
}

// NoticeError records err on the transaction in ctx.
func NoticeError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	newrelic.FromContext(ctx).NoticeError(err)
}

// Shutdown flushes pending data.
func (r *Reporter) Shutdown(timeout time.Duration) {
	if r.Enabled() {
		r.app.Shutdown(timeout)
	}
}
