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

package orderapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SuccessCode is the value of "code" on an accepted bill.
const SuccessCode = 1

// Response is the normalized answer of the order API.
type Response struct {
	Success     bool
	Code        int
	BillID      string
	TotalAmount decimal.NullDecimal
	Message     string
	StatusCode  int
	Raw         json.RawMessage
}

type rawResponse struct {
	Code     json.RawMessage `json:"code"`
	Messages json.RawMessage `json:"messages"`
	Data     json.RawMessage `json:"data"`
}

type rawBill struct {
	ID          json.RawMessage `json:"id"`
	TotalAmount json.RawMessage `json:"totalAmount"`
}

func parseResponse(body []byte) (*Response, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	if !json.Valid(body) {
		return nil, errors.New("response body is not JSON")
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}

	resp := &Response{Raw: json.RawMessage(body)}
	resp.Code, _ = scalarInt(raw.Code)
	resp.Success = resp.Code == SuccessCode

	if resp.Success {
		var bill rawBill
		if err := json.Unmarshal(raw.Data, &bill); err == nil {
			resp.BillID = scalarString(bill.ID)
			if amount, ok := scalarDecimal(bill.TotalAmount); ok && amount.IsPositive() {
				resp.TotalAmount = decimal.NewNullDecimal(amount)
			}
		}
		return resp, nil
	}

	resp.Message = joinMessages(raw.Messages)
	if resp.Message == "" {
		resp.Message = fmt.Sprintf("order api rejected the request (code %d)", resp.Code)
	}
	return resp, nil
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func scalarInt(raw json.RawMessage) (int, bool) {
	s := scalarString(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}

func scalarDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	s := scalarString(raw)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// joinMessages flattens "messages", which is a list, a single string or an
// object keyed by field name.
func joinMessages(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := scalarString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		keys := make([]string, 0, len(byField))
		for k := range byField {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := joinMessages(byField[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}

	return scalarString(raw)
}
