// Command wxve-chat is the CDK app for the chat site. Run it through the cdk
// CLI (`cdk synth`, `cdk deploy`).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/wxve/chat-site/pkg/config"
	"github.com/wxve/chat-site/pkg/logger"
	"github.com/wxve/chat-site/pkg/observability"
	obszap "github.com/wxve/chat-site/pkg/observability/zap"
	"github.com/wxve/chat-site/pkg/runid"
	"github.com/wxve/chat-site/pkg/site"
)

func main() {
	os.Exit(run())
}

func run() int {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wxve-chat: FAIL: %v\n", err)
		return 2
	}

	file, err := config.LoadFileSettings(env.SettingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wxve-chat: FAIL: %v\n", err)
		return 2
	}

	ctx := context.Background()
	log, err := obszap.NewZapLogger(observability.LoggerConfig{
		Format: env.LogFormat,
		Level:  env.LogLevel,
	}, obszap.WithEnvironmentErrorNotifications(ctx, obszap.DefaultEnvironmentErrorNotifications()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "wxve-chat: FAIL: %v\n", err)
		return 2
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = log.Flush(flushCtx)
		_ = log.Close()
	}()

	log = log.WithRunID(runid.ULIDGenerator{}.NewID())
	logger.SetLogger(log)
	defer logger.SetLogger(nil)

	app := awscdk.NewApp(nil)
	buildApp(app, env, file, log)
	app.Synth(nil)

	log.Info("synth complete")
	return 0
}

// buildApp declares the single site stack on app.
func buildApp(app awscdk.App, env config.Env, file config.FileSettings, log observability.StructuredLogger) *site.Stack {
	params := config.ResolveDomain(app.Node(), file)
	assetPath := config.ResolveAssetPath(app.Node(), file, site.DefaultAssetPath())

	if env.Account == "" {
		log.Warn("CDK_DEFAULT_ACCOUNT is not set; hosted zone lookup requires an account", map[string]any{
			"region": config.Region,
		})
	}

	return site.NewStack(app, config.StackID, &site.StackProps{
		StackProps: awscdk.StackProps{
			Env: stackEnv(env),
		},
		DomainName:     params.DomainName,
		HostedZoneName: params.HostedZoneName,
		AssetPath:      assetPath,
		Logger:         log,
	})
}

// stackEnv passes the account through unvalidated; an empty account stays
// unset so CDK reports it rather than using a blank id.
func stackEnv(env config.Env) *awscdk.Environment {
	out := &awscdk.Environment{
		Region: jsii.String(config.Region),
	}
	if env.Account != "" {
		out.Account = jsii.String(env.Account)
	}
	return out
}
