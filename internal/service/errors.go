package service

import (
	"errors"
	"fmt"
)

// Resource names a collection in user-facing messages.
type Resource string

const (
	ResourceProvider     Resource = "provider"
	ResourceDeliveryZone Resource = "delivery zone"
	ResourcePrice        Resource = "price"
	ResourceScrapingRun  Resource = "scraping run"
)

// Kind classifies a ResourceError.
type Kind int

const (
	KindInsert Kind = iota
	KindFetch
	KindUpdate
	KindDelete
	KindNotFound
	// KindReference means a referenced row of another resource is missing.
	KindReference
	KindInvalid
)

var kindVerbs = map[Kind]string{
	KindInsert:    "inserting",
	KindFetch:     "fetching",
	KindUpdate:    "updating",
	KindDelete:    "deleting",
	KindReference: "linking",
}

// ResourceError is the error returned by all catalog operations.
type ResourceError struct {
	Resource Resource
	Kind     Kind
	// ID is the row the error refers to, zero if unknown.
	ID  int64
	Err error
}

func (e *ResourceError) Error() string {
	switch e.Kind {
	case KindNotFound:
		if e.ID != 0 {
			return fmt.Sprintf("%s with id %d not found", e.Resource, e.ID)
		}
		return fmt.Sprintf("%s not found", e.Resource)
	case KindInvalid:
		return fmt.Sprintf("invalid %s: %v", e.Resource, e.Err)
	default:
		return fmt.Sprintf("Error while %s %s: %v", kindVerbs[e.Kind], e.Resource, e.Err)
	}
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func insertError(r Resource, err error) error {
	return &ResourceError{Resource: r, Kind: KindInsert, Err: err}
}

func fetchError(r Resource, err error) error {
	return &ResourceError{Resource: r, Kind: KindFetch, Err: err}
}

func updateError(r Resource, id int64, err error) error {
	return &ResourceError{Resource: r, Kind: KindUpdate, ID: id, Err: err}
}

func deleteError(r Resource, id int64, err error) error {
	return &ResourceError{Resource: r, Kind: KindDelete, ID: id, Err: err}
}

func notFound(r Resource, id int64) error {
	return &ResourceError{Resource: r, Kind: KindNotFound, ID: id}
}

func invalid(r Resource, format string, args ...any) error {
	return &ResourceError{Resource: r, Kind: KindInvalid, Err: fmt.Errorf(format, args...)}
}

// referenceError maps an error raised while resolving a row of another
// resource into an error of resource r. A missing row becomes a reference
// error keeping the original as cause; other errors stay as they are.
func referenceError(r Resource, id int64, err error) error {
	var re *ResourceError
	if errors.As(err, &re) && re.Kind == KindNotFound {
		return &ResourceError{Resource: r, Kind: KindReference, ID: id, Err: re}
	}
	return err
}

// IsNotFound reports whether err means a requested or referenced row is missing.
func IsNotFound(err error) bool {
	var re *ResourceError
	if !errors.As(err, &re) {
		return false
	}
	return re.Kind == KindNotFound || re.Kind == KindReference
}

// Errors of the credential lifecycle. Their messages are user facing.
var (
	ErrMissingCredentials = errors.New("Missing credentials")
	ErrWrongCredentials   = errors.New("Wrong credentials")
	ErrUserExists         = errors.New("User already exists")
)
