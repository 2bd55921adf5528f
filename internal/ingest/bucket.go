package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
)

// BucketOpener opens the container to download from.
type BucketOpener func(ctx context.Context, account, containerName, token string) (*blob.Bucket, error)

// ContainerURL returns the URL of an Azure container authorised by a SAS
// token. The token may be given with or without its leading "?".
func ContainerURL(account, containerName, token string) string {
	if token != "" && !strings.HasPrefix(token, "?") {
		token = "?" + token
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s%s", account, containerName, token)
}

// OpenAzureBucket opens an Azure Blob Storage container with a SAS token.
func OpenAzureBucket(ctx context.Context, account, containerName, token string) (*blob.Bucket, error) {
	client, err := container.NewClientWithNoCredential(ContainerURL(account, containerName, token), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create client for container %s of %s", containerName, account)
	}

	bucket, err := azureblob.OpenBucket(ctx, client, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open container %s of %s", containerName, account)
	}

	return bucket, nil
}

// URLOpener opens the bucket at a gocloud URL, ignoring the credentials. The
// driver of the URL scheme must be registered.
func URLOpener(bucketURL string) BucketOpener {
	return func(ctx context.Context, _, _, _ string) (*blob.Bucket, error) {
		bucket, err := blob.OpenBucket(ctx, bucketURL)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open bucket %s", bucketURL)
		}

		return bucket, nil
	}
}
