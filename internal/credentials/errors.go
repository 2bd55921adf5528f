package credentials

import "github.com/pkg/errors"

// ErrMissingCredentials is returned when a field is not defined by any source.
var ErrMissingCredentials = errors.New(
	"to run the download provide --account, --container and --sas " +
		"(or set ACCOUNT_NAME, CONTAINER_NAME and AZURE_SAS_TOKEN in the environment or .env)",
)
