package extraction

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAPIKeyMissing means extraction was attempted without an API key.
	ErrAPIKeyMissing = errors.New("extraction: api key not configured")
	// ErrInvalidAPIKey means the model provider rejected the credential.
	ErrInvalidAPIKey = errors.New("extraction: invalid api key")
	// ErrUnreadableResponse means the model answered but no JSON object
	// could be recovered from its text.
	ErrUnreadableResponse = errors.New("extraction: could not parse model response")
)

// Document error kinds the model itself reports.
const (
	KindWrongDocument = "wrong_document_type"
	KindMissingData   = "missing_data"
)

// DocumentError means the uploaded file cannot yield bill data no matter
// how often we retry: it is the wrong kind of document, or a bill with
// required fields absent. The caller should offer manual entry instead.
type DocumentError struct {
	Kind     string
	Detected string
	Missing  []string
}

func (e *DocumentError) Error() string {
	switch e.Kind {
	case KindWrongDocument:
		if e.Detected != "" {
			return fmt.Sprintf("extraction: document is not a utility bill (looks like a %s)", e.Detected)
		}
		return "extraction: document is not a utility bill"
	case KindMissingData:
		if len(e.Missing) > 0 {
			return fmt.Sprintf("extraction: bill is missing %s", strings.Join(e.Missing, ", "))
		}
		return "extraction: bill is missing required fields"
	}
	return "extraction: document cannot be processed"
}

// IsTerminal reports whether retrying the extraction cannot help. Auth
// failures and document problems are terminal; transport errors are not.
func IsTerminal(err error) bool {
	var docErr *DocumentError
	return errors.Is(err, ErrAPIKeyMissing) ||
		errors.Is(err, ErrInvalidAPIKey) ||
		errors.As(err, &docErr)
}
