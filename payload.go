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

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jerry-enebeli/orderrelay/model"
)

// PayloadError reports order_data that cannot be sent to the order API.
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// NormalizedOrder is order_data ready for submission. Raw is the exact JSON
// object forwarded to the API; Payload is a typed view used for logging and
// is left zero where the object does not match it.
type NormalizedOrder struct {
	Raw     json.RawMessage
	Payload model.OrderPayload
}

// NormalizeOrderData accepts a JSON object or a JSON string holding an
// encoded object. Anything else is a *PayloadError.
func NormalizeOrderData(raw json.RawMessage) (NormalizedOrder, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return NormalizedOrder{}, &PayloadError{Reason: "order_data is empty"}
	}
	if !json.Valid(data) {
		return NormalizedOrder{}, &PayloadError{Reason: "order_data is not valid JSON"}
	}

	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return NormalizedOrder{}, &PayloadError{Reason: "order_data string cannot be read", Err: err}
		}
		data = bytes.TrimSpace([]byte(encoded))
		if len(data) == 0 || !json.Valid(data) {
			return NormalizedOrder{}, &PayloadError{Reason: "order_data string does not hold valid JSON"}
		}
	}

	if data[0] != '{' {
		return NormalizedOrder{}, &PayloadError{Reason: "order_data must be a JSON object"}
	}

	// The typed view is best effort: the API may accept shapes it does not model.
	var payload model.OrderPayload
	_ = json.Unmarshal(data, &payload)

	return NormalizedOrder{Raw: json.RawMessage(data), Payload: payload}, nil
}
