// Package config resolves the inputs of the site stack: CDK context values,
// process environment and an optional YAML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"github.com/wxve/chat-site/pkg/naming"
)

const (
	DefaultDomainName     = "chat.wxve.io"
	DefaultHostedZoneName = "wxve.io"

	// Region is fixed: CloudFront only accepts ACM certificates from us-east-1.
	Region  = "us-east-1"
	StackID = "WxveChatStack"

	ContextDomainName     = "domainName"
	ContextHostedZoneName = "hostedZoneName"
	ContextAssetPath      = "assetPath"
)

// Env holds the process environment read by the CDK app.
type Env struct {
	// Account is passed through to the stack environment unvalidated.
	Account      string `env:"CDK_DEFAULT_ACCOUNT"`
	LogLevel     string `env:"WXVE_LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"WXVE_LOG_FORMAT" envDefault:"console"`
	SettingsFile string `env:"WXVE_SITE_CONFIG"`
}

// FileSettings mirrors the optional YAML settings file.
type FileSettings struct {
	DomainName     string `yaml:"domainName"`
	HostedZoneName string `yaml:"hostedZoneName"`
	AssetPath      string `yaml:"assetPath"`
}

// DomainParams are the two inputs every declared resource derives from.
type DomainParams struct {
	DomainName     string
	HostedZoneName string
}

// ContextReader is the subset of constructs.Node used for context lookups.
type ContextReader interface {
	TryGetContext(key *string) interface{}
}

// LoadEnv parses the process environment.
func LoadEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Account = strings.TrimSpace(cfg.Account)
	return cfg, nil
}

// LoadFileSettings reads the YAML settings file at path. An empty path yields
// zero settings; a path that cannot be read is an error.
func LoadFileSettings(path string) (FileSettings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return FileSettings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileSettings{}, fmt.Errorf("read settings file: %w", err)
	}

	var out FileSettings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return FileSettings{}, fmt.Errorf("decode settings file %s: %w", path, err)
	}
	return out, nil
}

// ResolveDomain applies context > file > default precedence to the domain
// and hosted zone names. Candidates are normalized before the choice, so
// blank, dot-only and non-string values count as absent.
func ResolveDomain(ctx ContextReader, file FileSettings) DomainParams {
	return DomainParams{
		DomainName: firstNonEmpty(
			naming.NormalizeDomain(contextString(ctx, ContextDomainName)),
			naming.NormalizeDomain(file.DomainName),
			DefaultDomainName,
		),
		HostedZoneName: firstNonEmpty(
			naming.NormalizeDomain(contextString(ctx, ContextHostedZoneName)),
			naming.NormalizeDomain(file.HostedZoneName),
			DefaultHostedZoneName,
		),
	}
}

// ResolveAssetPath returns the directory the bucket deployment uploads.
func ResolveAssetPath(ctx ContextReader, file FileSettings, fallback string) string {
	return firstNonEmpty(contextString(ctx, ContextAssetPath), file.AssetPath, fallback)
}

func contextString(ctx ContextReader, key string) string {
	if ctx == nil {
		return ""
	}
	value, ok := ctx.TryGetContext(&key).(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
