package cms

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNoDocuments = "NO_DOCUMENTS"
	TextCodeAPIFailure  = "CMS_API_FAILURE"
	TextCodeNoMasterRef = "CMS_NO_MASTER_REF"

	noDocumentsMessage = "No documents were returned"
)

// ErrNilDocument is returned by helpers that require a document.
var ErrNilDocument = errors.New("cms: document is nil")

func noDocuments(docType, uid, lang string) error {
	return goerrors.New(noDocumentsMessage, goerrors.CategoryNotFound).
		WithTextCode(TextCodeNoDocuments).
		WithMetadata(map[string]any{"type": docType, "uid": uid, "lang": lang})
}

// IsNoDocuments reports whether err is the expected "no documents" result
// of a lookup. Callers treat it as a silent miss rather than a failure.
func IsNoDocuments(err error) bool {
	var cmsErr *goerrors.Error
	if goerrors.As(err, &cmsErr) {
		return cmsErr.TextCode == TextCodeNoDocuments
	}
	return false
}

func apiFailure(err error, message string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).WithTextCode(TextCodeAPIFailure)
}
