// Command site-verify probes the deployed chat site using the outputs of its
// CloudFormation stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wxve/chat-site/pkg/config"
	"github.com/wxve/chat-site/pkg/observability"
	obszap "github.com/wxve/chat-site/pkg/observability/zap"
	"github.com/wxve/chat-site/pkg/runid"
	"github.com/wxve/chat-site/pkg/verify"
)

type options struct {
	stack    string
	region   string
	endpoint string
	siteURL  string
	timeout  time.Duration
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(stderr, "site-verify: FAIL: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	log, err := obszap.NewZapLogger(observability.LoggerConfig{
		Format: env.LogFormat,
		Level:  env.LogLevel,
	}, obszap.WithEnvironmentErrorNotifications(ctx, obszap.DefaultEnvironmentErrorNotifications()))
	if err != nil {
		fmt.Fprintf(stderr, "site-verify: FAIL: %v\n", err)
		return 2
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = log.Flush(flushCtx)
		_ = log.Close()
	}()
	log = log.WithRunID(runid.ULIDGenerator{}.NewID()).WithStack(opts.stack)

	var reader verify.OutputsReader
	if opts.siteURL == "" {
		reader, err = verify.NewOutputsReader(ctx, verify.WithRegion(opts.region), verify.WithEndpoint(opts.endpoint))
		if err != nil {
			fmt.Fprintf(stderr, "site-verify: FAIL: %v\n", err)
			return 2
		}
	}

	return verifySite(ctx, opts, reader, verify.NewChecker(verify.WithLogger(log)), stdout, stderr)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("site-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.stack, "stack", config.StackID, "CloudFormation stack to read outputs from")
	fs.StringVar(&opts.region, "region", config.Region, "region of the stack")
	fs.StringVar(&opts.endpoint, "endpoint", "", "CloudFormation endpoint override (emulators)")
	fs.StringVar(&opts.siteURL, "url", "", "site URL; skips the stack lookup when set")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func verifySite(ctx context.Context, opts options, reader verify.OutputsReader, checker *verify.Checker, stdout, stderr io.Writer) int {
	siteURL := opts.siteURL
	if siteURL == "" {
		outputs, err := reader.StackOutputs(ctx, opts.stack)
		if err != nil {
			fmt.Fprintf(stderr, "site-verify: FAIL: %v\n", err)
			return 2
		}
		siteURL = outputs.WebsiteURL
		fmt.Fprintf(stdout, "site-verify: distribution %s\n", outputs.DistributionDomainName)
	}

	target, err := verify.TargetFor(siteURL)
	if err != nil {
		fmt.Fprintf(stderr, "site-verify: FAIL: %v\n", err)
		return 2
	}

	report := checker.Run(ctx, target)
	for _, res := range report.Results {
		status := "ok"
		if res.Err != nil {
			status = "FAIL " + res.Err.Error()
		}
		fmt.Fprintf(stdout, "site-verify: %-15s %s %s\n", res.Check, res.URL, status)
	}
	if !report.OK() {
		fmt.Fprintf(stderr, "site-verify: %d check(s) failed\n", len(report.Failed()))
		return 1
	}
	return 0
}
