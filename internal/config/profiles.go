package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// AWSProfile is a named profile from the shared AWS config files.
type AWSProfile struct {
	Name           string
	Region         string
	HasCredentials bool
	SSO            bool
}

// awsFile returns the path from env or the default under ~/.aws.
func awsFile(envVar, name string) string {
	if p := os.Getenv(envVar); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", name)
}

// ListAWSProfiles merges profile names from ~/.aws/config and
// ~/.aws/credentials (or AWS_CONFIG_FILE / AWS_SHARED_CREDENTIALS_FILE),
// sorted with "default" first.
func ListAWSProfiles() ([]AWSProfile, error) {
	return listAWSProfiles(
		awsFile("AWS_CONFIG_FILE", "config"),
		awsFile("AWS_SHARED_CREDENTIALS_FILE", "credentials"),
	)
}

func listAWSProfiles(configPath, credentialsPath string) ([]AWSProfile, error) {
	profiles := make(map[string]*AWSProfile)
	get := func(name string) *AWSProfile {
		p, ok := profiles[name]
		if !ok {
			p = &AWSProfile{Name: name}
			profiles[name] = p
		}
		return p
	}

	if f, err := loadOptionalINI(configPath); err != nil {
		return nil, err
	} else if f != nil {
		for _, sec := range f.Sections() {
			name := sec.Name()
			switch {
			case name == "default":
			case strings.HasPrefix(name, "profile "):
				name = strings.TrimSpace(strings.TrimPrefix(name, "profile "))
			default:
				continue
			}
			p := get(name)
			p.Region = sec.Key("region").String()
			p.SSO = sec.HasKey("sso_start_url") || sec.HasKey("sso_session")
			if sec.HasKey("aws_access_key_id") || sec.HasKey("credential_process") || sec.HasKey("role_arn") {
				p.HasCredentials = true
			}
		}
	}

	if f, err := loadOptionalINI(credentialsPath); err != nil {
		return nil, err
	} else if f != nil {
		for _, sec := range f.Sections() {
			if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
				continue
			}
			p := get(sec.Name())
			if sec.HasKey("aws_access_key_id") {
				p.HasCredentials = true
			}
		}
	}

	out := make([]AWSProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Name == "default") != (out[j].Name == "default") {
			return out[i].Name == "default"
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func loadOptionalINI(path string) (*ini.File, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}
