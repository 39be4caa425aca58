// Package studentdir translates between student registration numbers and
// the on-disk directory names of the face image store.
//
// A registration number has the form "<body>/<year>", for example
// "E028-01-1303/2020". Directory names cannot contain a path separator,
// so the store encodes the year separator as a dash: "E028-01-1303-2020".
// The grammar is strict in both directions; names that do not parse are
// rejected rather than guessed, so the operator can fix them instead of
// the pipeline silently training on a misattributed directory.
package studentdir

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dkorir/faceattend-go/internal/errors"
)

// dirPattern matches "<body>-<4 digit year>" where body is non-empty and
// free of path separators.
var dirPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9\-]*)-(\d{4})$`)

// regPattern matches "<body>/<4 digit year>".
var regPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9\-]*)/(\d{4})$`)

// Encode converts a registration number to its directory name.
func Encode(registration string) (string, error) {
	m := regPattern.FindStringSubmatch(registration)
	if m == nil {
		return "", errors.Newf("registration number %q does not match <body>/<year>", registration).
			Component("studentdir").
			Category(errors.CategoryValidation).
			Build()
	}
	return m[1] + "-" + m[2], nil
}

// Decode converts a directory name back to a registration number.
func Decode(dirName string) (string, error) {
	m := dirPattern.FindStringSubmatch(dirName)
	if m == nil {
		return "", errors.Newf("directory name %q does not match <body>-<year>", dirName).
			Component("studentdir").
			Category(errors.CategoryValidation).
			Build()
	}
	return m[1] + "/" + m[2], nil
}

// Resolver resolves decoded registration numbers against a directory of
// known students. Implemented by the datastore.
type Resolver interface {
	ResolveRegistration(registration string) (known bool, err error)
}

// Resolve decodes a directory name and checks the result against the
// resolver. Returns the registration number, or an error when the name
// is unparseable or unknown.
func Resolve(dirName string, resolver Resolver) (string, error) {
	registration, err := Decode(dirName)
	if err != nil {
		return "", err
	}
	known, err := resolver.ResolveRegistration(registration)
	if err != nil {
		return "", err
	}
	if !known {
		return "", errors.New(fmt.Errorf("directory %q resolves to %q which matches no known student", dirName, registration)).
			Component("studentdir").
			Category(errors.CategoryValidation).
			Build()
	}
	return registration, nil
}

// IsImageFile reports whether a file name has an accepted image extension.
func IsImageFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png")
}
