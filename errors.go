// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import "github.com/pkg/errors"

// ErrConfig indicates a malformed registry, scenario or option set.
//
// Configuration errors are raised by [NewRegistry] and [Build] before any
// goroutine is started. They are never produced while a scenario runs.
var ErrConfig = errors.New("lincheck: invalid configuration")

// ErrLiveness indicates that an invocation did not complete within the
// configured timeout. The object under test is either blocked or livelocked.
//
// A liveness failure is reported separately from a linearizability
// violation and is not retried.
var ErrLiveness = errors.New("lincheck: execution hung")

// ErrViolation indicates that the checker exhausted its search without
// finding a sequential order that explains the recorded results.
var ErrViolation = errors.New("lincheck: non-linearizable execution")

// ErrHarness indicates a defect in the harness itself, such as an invocation
// without a matching response or a snapshot taken while threads were live.
// It is never attributed to the object under test.
var ErrHarness = errors.New("lincheck: harness inconsistency")

// IsConfig reports whether err is, or wraps, [ErrConfig].
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsLiveness reports whether err is, or wraps, [ErrLiveness].
func IsLiveness(err error) bool {
	return errors.Is(err, ErrLiveness)
}

// IsViolation reports whether err is, or wraps, [ErrViolation].
func IsViolation(err error) bool {
	return errors.Is(err, ErrViolation)
}

// IsHarness reports whether err is, or wraps, [ErrHarness].
func IsHarness(err error) bool {
	return errors.Is(err, ErrHarness)
}

func configErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

func harnessErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrHarness, format, args...)
}
