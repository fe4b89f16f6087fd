package notifications

import "errors"

var (
	// errInvalidEndpoint indicates an ntfy or webhook URL that cannot be used.
	errInvalidEndpoint = errors.New("invalid notification endpoint")
	// errInvalidMethod indicates a webhook method other than POST or PUT.
	errInvalidMethod = errors.New("webhook method must be POST or PUT")
	// errFailedMarshalPayload indicates the webhook payload could not be encoded.
	errFailedMarshalPayload = errors.New("failed to marshal webhook payload")
	// errFailedCreateSender indicates Shoutrrr rejected a service URL.
	errFailedCreateSender = errors.New("failed to create notification sender")
)
