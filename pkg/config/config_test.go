package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapContext map[string]interface{}

func (m mapContext) TryGetContext(key *string) interface{} {
	return m[*key]
}

func TestResolveDomain_Defaults(t *testing.T) {
	got := ResolveDomain(nil, FileSettings{})
	assert.Equal(t, DomainParams{DomainName: "chat.wxve.io", HostedZoneName: "wxve.io"}, got)

	got = ResolveDomain(mapContext{}, FileSettings{})
	assert.Equal(t, DomainParams{DomainName: "chat.wxve.io", HostedZoneName: "wxve.io"}, got)
}

func TestResolveDomain_Precedence(t *testing.T) {
	file := FileSettings{DomainName: "file.example.com", HostedZoneName: "example.com"}

	got := ResolveDomain(mapContext{"domainName": "Chat.Example.com."}, file)
	assert.Equal(t, "chat.example.com", got.DomainName)
	assert.Equal(t, "example.com", got.HostedZoneName)

	got = ResolveDomain(mapContext{}, file)
	assert.Equal(t, "file.example.com", got.DomainName)
}

func TestResolveDomain_BlankAndNonStringContextFallBack(t *testing.T) {
	got := ResolveDomain(mapContext{"domainName": "  ", "hostedZoneName": 42}, FileSettings{})
	assert.Equal(t, DefaultDomainName, got.DomainName)
	assert.Equal(t, DefaultHostedZoneName, got.HostedZoneName)
}

func TestResolveDomain_DotOnlyValuesFallBack(t *testing.T) {
	got := ResolveDomain(mapContext{"domainName": ".", "hostedZoneName": "..."}, FileSettings{})
	assert.Equal(t, DomainParams{DomainName: DefaultDomainName, HostedZoneName: DefaultHostedZoneName}, got)

	got = ResolveDomain(mapContext{"domainName": " . "}, FileSettings{DomainName: "..", HostedZoneName: "Example.com."})
	assert.Equal(t, DefaultDomainName, got.DomainName)
	assert.Equal(t, "example.com", got.HostedZoneName)

	got = ResolveDomain(mapContext{"domainName": "."}, FileSettings{DomainName: "File.Example.com"})
	assert.Equal(t, "file.example.com", got.DomainName)
}

func TestResolveDomain_FromCDKAppContext(t *testing.T) {
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &map[string]interface{}{
			"domainName":     "chat.example.com",
			"hostedZoneName": "example.com",
		},
	})

	got := ResolveDomain(app.Node(), FileSettings{})
	assert.Equal(t, DomainParams{DomainName: "chat.example.com", HostedZoneName: "example.com"}, got)
}

func TestResolveAssetPath(t *testing.T) {
	assert.Equal(t, "/fallback", ResolveAssetPath(nil, FileSettings{}, "/fallback"))
	assert.Equal(t, "/file", ResolveAssetPath(nil, FileSettings{AssetPath: "/file"}, "/fallback"))
	assert.Equal(t, "/ctx", ResolveAssetPath(mapContext{"assetPath": "/ctx"}, FileSettings{AssetPath: "/file"}, "/fallback"))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CDK_DEFAULT_ACCOUNT", " 123456789012 ")
	t.Setenv("WXVE_LOG_LEVEL", "debug")
	t.Setenv("WXVE_LOG_FORMAT", "")
	t.Setenv("WXVE_SITE_CONFIG", "")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "123456789012", cfg.Account)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.SettingsFile)
}

func TestLoadEnv_AccountMayBeAbsent(t *testing.T) {
	t.Setenv("CDK_DEFAULT_ACCOUNT", "")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.Account)
}

func TestLoadFileSettings(t *testing.T) {
	settings, err := LoadFileSettings("")
	require.NoError(t, err)
	assert.Equal(t, FileSettings{}, settings)

	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domainName: chat.example.com\nhostedZoneName: example.com\nassetPath: ./build\n"), 0o600))

	settings, err = LoadFileSettings(path)
	require.NoError(t, err)
	assert.Equal(t, FileSettings{DomainName: "chat.example.com", HostedZoneName: "example.com", AssetPath: "./build"}, settings)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	settings, err = LoadFileSettings(empty)
	require.NoError(t, err)
	assert.Equal(t, FileSettings{}, settings)
}

func TestLoadFileSettings_Errors(t *testing.T) {
	_, err := LoadFileSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domainNmae: typo\n"), 0o600))
	_, err = LoadFileSettings(path)
	require.Error(t, err)
}
