package extraction

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a terminal extraction failure.
type ErrorKind string

const (
	KindUnsupportedType    ErrorKind = "unsupported_type"
	KindPasswordProtected  ErrorKind = "password_protected"
	KindInvalidDocument    ErrorKind = "invalid_document"
	KindUnreadableDocument ErrorKind = "unreadable_document"
	KindNoTextInImage      ErrorKind = "no_text_in_image"
	KindImageExtraction    ErrorKind = "image_extraction"
)

// Error is a terminal failure. Message is shown to end users verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnsupportedType = &Error{
		Kind:    KindUnsupportedType,
		Message: "Unsupported file type. Please upload a PDF or image file.",
	}
	ErrPasswordProtected = &Error{
		Kind:    KindPasswordProtected,
		Message: "This PDF is password protected. Please upload an unprotected PDF.",
	}
	ErrInvalidDocument = &Error{
		Kind:    KindInvalidDocument,
		Message: "The PDF could not be opened. It may be damaged; please try a different file or format.",
	}
	ErrUnreadableDocument = &Error{
		Kind:    KindUnreadableDocument,
		Message: "Could not extract readable text from the PDF. The document may be empty or heavily corrupted. Please try a different file or convert it to an image format.",
	}
	ErrNoTextInImage = &Error{
		Kind:    KindNoTextInImage,
		Message: "No text could be extracted from the image. Please ensure the image contains readable text.",
	}
	ErrImageExtraction = &Error{
		Kind:    KindImageExtraction,
		Message: "Failed to extract text from the image. Please try a different file or format.",
	}
)

func newError(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

// UserMessage returns the remediation text for err, or a generic message when
// err is not an extraction error.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Failed to extract text. Please try a different file or format."
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
