// SPDX-License-Identifier: GPL-3.0-or-later

package meshcore

import "github.com/oonf-go/meshcore/internal/errclass"

// ErrClassifier classifies errors into categorical strings for analysis.
//
// Implementations map errors to short, descriptive labels (e.g., "ETIMEDOUT",
// "ECONNRESET") that facilitate systematic analysis of daemon operations.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	op.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using package
// [github.com/oonf-go/meshcore/internal/errclass], the syscall-errno-aware
// classifier shared by netlink, dlep, and dnssd.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
