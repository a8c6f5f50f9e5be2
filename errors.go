/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package orderrelay

import "fmt"

// ErrorKind classifies relay failures.
type ErrorKind string

const (
	// Invocation level: the whole run is refused and no entry is touched.
	KindConfiguration ErrorKind = "ConfigurationError"
	KindBatchFetch    ErrorKind = "BatchFetchError"
	KindLock          ErrorKind = "LockError"

	// Entry level: the entry is finalized failed and the batch continues.
	KindNetwork    ErrorKind = "NetworkError"
	KindPayload    ErrorKind = "PayloadError"
	KindUnexpected ErrorKind = "UnexpectedError"
)

// InvocationError aborts ProcessPending before any entry is claimed.
type InvocationError struct {
	Kind ErrorKind
	Err  error
}

func (e *InvocationError) Error() string {
	if e.Kind == KindConfiguration {
		return fmt.Sprintf("Missing required configuration: %v", e.Err)
	}
	return fmt.Sprintf("Function error: %v", e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// EntryError is the failure of a single queue entry. It never leaves the
// entry's processing boundary; its message is stored on the entry and on
// the result record.
type EntryError struct {
	Kind ErrorKind
	Err  error
}

func (e *EntryError) Error() string {
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("Network error: %v", e.Err)
	case KindPayload:
		return fmt.Sprintf("Invalid order data: %v", e.Err)
	default:
		return fmt.Sprintf("Unexpected error: %v", e.Err)
	}
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

func unexpected(format string, args ...interface{}) *EntryError {
	return &EntryError{Kind: KindUnexpected, Err: fmt.Errorf(format, args...)}
}
