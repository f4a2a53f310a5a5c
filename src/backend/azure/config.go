package azure

import (
	"errors"
	"os"
	"strings"
)

// Config selects the storage account and credentials. Credentials are
// tried in order: SAS token, service principal, DefaultAzureCredential.
type Config struct {
	Account   string
	Container string
	SASToken  string
	Endpoint  string // defaults to https://<account>.blob.core.windows.net/
	Prefix    string // key prefix inside the container

	ClientID     string
	ClientSecret string
	TenantID     string
}

// ConfigFromEnv reads AZURE_* variables.
func ConfigFromEnv() Config {
	get := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	return Config{
		Account:      get("AZURE_STORAGE_ACCOUNT"),
		Container:    get("AZURE_STORAGE_CONTAINER"),
		SASToken:     get("AZURE_STORAGE_SAS"),
		Endpoint:     get("AZURE_BLOB_ENDPOINT"),
		Prefix:       get("AZURE_BLOB_PREFIX"),
		ClientID:     get("AZURE_CLIENT_ID"),
		ClientSecret: get("AZURE_CLIENT_SECRET"),
		TenantID:     get("AZURE_TENANT_ID"),
	}
}

func (c Config) validate() error {
	if c.Account == "" || c.Container == "" {
		return errors.New("azure: AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_CONTAINER are required")
	}
	return nil
}

func (c Config) endpoint() string {
	ep := c.Endpoint
	if ep == "" {
		ep = "https://" + c.Account + ".blob.core.windows.net/"
	}
	if !strings.HasSuffix(ep, "/") {
		ep += "/"
	}
	return ep
}

// Key joins the configured prefix and name into a blob key.
func (c Config) Key(name string) string {
	name = strings.TrimPrefix(name, "/")
	p := strings.Trim(c.Prefix, "/")
	if p == "" {
		return name
	}
	return p + "/" + name
}
