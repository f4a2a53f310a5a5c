package azure

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// newClient builds a blob client.
// Priority: 1) SAS  2) Service Principal  3) DefaultAzureCredential.
func newClient(c Config) (*azblob.Client, error) {
	endpoint := c.endpoint()

	if sas := strings.TrimPrefix(strings.TrimSpace(c.SASToken), "?"); sas != "" {
		return azblob.NewClientWithNoCredential(endpoint+"?"+sas, nil)
	}

	if c.ClientID != "" && c.ClientSecret != "" && c.TenantID != "" {
		cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
		if err != nil {
			return nil, err
		}
		return azblob.NewClient(endpoint, cred, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(endpoint, cred, nil)
}
