package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectdesk/objectdesk/internal/config"
)

func TestConfigCommands(t *testing.T) {
	cmd := newConfigCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "config", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
		assert.NotEmpty(t, sub.Short, "%s has no short description", sub.Name())
	}
	assert.ElementsMatch(t, []string{"init", "show", "set", "path"}, names)

	initCmd := newConfigInitCmd()
	assert.NotNil(t, initCmd.Flags().Lookup("force"))
	assert.NotNil(t, initCmd.Flags().ShorthandLookup("f"))

	show := newConfigShowCmd()
	assert.NotNil(t, show.Flags().Lookup("effective"))

	set := newConfigSetCmd()
	assert.Error(t, set.Args(set, []string{"storage.region"}))
	assert.NoError(t, set.Args(set, []string{"storage.region", "eu-west-1"}))
}

func TestRunConfigWizard_Defaults(t *testing.T) {
	// Every answer empty: backend, region, endpoint, profile, proxy mode.
	in := strings.NewReader(strings.Repeat("\n", 5))
	var out bytes.Buffer

	s, err := runConfigWizard(in, &out)
	require.NoError(t, err)

	assert.Equal(t, config.BackendS3, s.Storage.Backend)
	assert.Equal(t, "us-east-1", s.Storage.Region)
	assert.Empty(t, s.Storage.Endpoint)
	assert.False(t, s.Storage.PathStyle)
	assert.Equal(t, "default", s.Session.Profile)
	assert.Equal(t, config.ProxyNone, s.Proxy.Mode)

	assert.Contains(t, out.String(), "Storage backend (s3, azure) [s3]: ")
	assert.Contains(t, out.String(), "Proxy mode")
}

func TestRunConfigWizard_CustomEndpoint(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"s3",
		"eu-central-1",
		"http://localhost:9000",
		"y",
		"minio",
		"basic",
		"proxy.example.com",
		"3128",
		"alice",
		"localhost,.internal",
	}, "\n") + "\n")

	s, err := runConfigWizard(in, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "eu-central-1", s.Storage.Region)
	assert.Equal(t, "http://localhost:9000", s.Storage.Endpoint)
	assert.True(t, s.Storage.PathStyle)
	assert.Equal(t, "minio", s.Session.Profile)
	assert.Equal(t, config.ProxyBasic, s.Proxy.Mode)
	assert.Equal(t, "proxy.example.com", s.Proxy.Host)
	assert.Equal(t, 3128, s.Proxy.Port)
	assert.Equal(t, "alice", s.Proxy.User)
	assert.Equal(t, "localhost,.internal", s.Proxy.NoProxy)
}

func TestRunConfigWizard_Azure(t *testing.T) {
	in := strings.NewReader("AZURE\nmyaccount\nsystem\n")

	s, err := runConfigWizard(in, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, config.BackendAzure, s.Storage.Backend)
	assert.Equal(t, "myaccount", s.Storage.AzureAccount)
	assert.Equal(t, config.ProxySystem, s.Proxy.Mode)
}

func TestRunConfigWizard_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown backend", "gcs\n\n"},
		{"bad proxy port", "s3\n\n\n\nntlm\nproxy\nnot-a-port\n"},
		{"proxy without host", "s3\n\n\n\nbasic\n\n\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runConfigWizard(strings.NewReader(tt.input), &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestPrintSettings(t *testing.T) {
	s := config.NewSettings()
	s.Session.Bucket = "reports"
	s.Storage.Region = "us-west-2"

	var out bytes.Buffer
	printSettings(&out, "/tmp/objectdesk.ini", s)
	text := out.String()

	assert.Contains(t, text, "Settings file: /tmp/objectdesk.ini")
	assert.Contains(t, text, "bucket          = reports")
	assert.Contains(t, text, "prefix          = (not set)")
	assert.Contains(t, text, "region          = us-west-2")
	assert.Contains(t, text, "[notifications]")
	assert.Contains(t, text, "on_failure      = true")
	assert.NotContains(t, text, "host            =", "proxy details only show for basic and ntlm")

	s.Proxy.Mode = config.ProxyNTLM
	s.Proxy.Host = "proxy.corp"
	s.Proxy.Port = 8080
	out.Reset()
	printSettings(&out, "x.ini", s)
	assert.Contains(t, out.String(), "host            = proxy.corp")
	assert.Contains(t, out.String(), "port            = 8080")
}
