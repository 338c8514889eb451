package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"
)

const defaultContainer = "sentiment"

// AzureBlobStore is the remote BlobStore behind the memory repository.
// It holds the storage.json state dump and the backups/ exports written
// by the backup job, one blob per name.
type AzureBlobStore struct {
	client    *azblob.Client
	container string
}

var _ BlobStore = (*AzureBlobStore)(nil)

// NewAzureBlobStore authenticates with the default Azure credential chain
// and creates the container on first use.
func NewAzureBlobStore(ctx context.Context, account, container string) (*AzureBlobStore, error) {
	serviceURL, err := blobServiceURL(account)
	if err != nil {
		return nil, err
	}
	if container == "" {
		container = defaultContainer
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client for %s: %w", account, err)
	}

	s := &AzureBlobStore{client: client, container: container}
	if err := s.createContainer(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func blobServiceURL(account string) (string, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return "", fmt.Errorf("storage account name is required")
	}
	return "https://" + account + ".blob.core.windows.net/", nil
}

// contentTypeFor labels state dumps and exports so they open as JSON in the portal
func contentTypeFor(name string) string {
	if strings.EqualFold(path.Ext(name), ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}

func (s *AzureBlobStore) createContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	switch {
	case err == nil:
		logrus.WithField("container", s.container).Info("Created state container")
	case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
		logrus.WithField("container", s.container).Debug("Using existing state container")
	default:
		return fmt.Errorf("failed to create container %s: %w", s.container, err)
	}
	return nil
}

func (s *AzureBlobStore) Store(ctx context.Context, name string, data []byte) error {
	contentType := contentTypeFor(name)
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		BlockSize:   1 << 20,
		Concurrency: 3,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{"blob": name, "bytes": len(data)}).Debug("Stored blob")
	return nil
}

func (s *AzureBlobStore) Retrieve(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// List returns blob names under prefix, e.g. "backups/" for the exports
func (s *AzureBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

func (s *AzureBlobStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	logrus.WithField("blob", name).Info("Deleted blob")
	return nil
}
