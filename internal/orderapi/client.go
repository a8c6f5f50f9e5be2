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

// Package orderapi submits queued orders to the retail bill endpoint of the
// external order API and normalizes its JSON answers.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jerry-enebeli/orderrelay/config"
)

const addRetailPath = "/bill/addretail"

// NetworkError reports a submission that produced no usable answer: the
// request could not be sent, timed out, or the body was unreadable or not JSON.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL     string
	appID       string
	businessID  string
	accessToken string
	httpClient  *http.Client
}

func New(cnf config.OrderAPIConfig) *Client {
	return &Client{
		baseURL:     cnf.BaseURL,
		appID:       cnf.AppID,
		businessID:  cnf.BusinessID,
		accessToken: cnf.AccessToken,
		httpClient:  &http.Client{Timeout: cnf.Timeout()},
	}
}

func (c *Client) endpoint() string {
	query := url.Values{}
	query.Set("appId", c.appID)
	query.Set("businessId", c.businessID)
	return fmt.Sprintf("%s%s?%s", c.baseURL, addRetailPath, query.Encode())
}

// Submit posts orderData unchanged and classifies the answer. Any JSON body
// is a structured answer whatever the HTTP status; everything else is a
// *NetworkError.
func (c *Client) Submit(ctx context.Context, orderData json.RawMessage) (*Response, error) {
	ctx, span := otel.Tracer("orderrelay.orderapi").Start(ctx, "Submitting retail bill")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(orderData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, &NetworkError{Op: "send request", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, &NetworkError{Op: "read response", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Order API response received")

	result, err := parseResponse(body)
	if err != nil {
		span.RecordError(err)
		return nil, &NetworkError{Op: "decode response", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}
	result.StatusCode = resp.StatusCode

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Bool("order_api.success", result.Success),
	)

	return result, nil
}
