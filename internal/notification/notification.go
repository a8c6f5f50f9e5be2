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

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/orderrelay/config"
	"github.com/jerry-enebeli/orderrelay/internal/request"
)

// Slack posts relay failures to an incoming webhook.
type Slack struct {
	webhookURL string
	project    string
	client     *http.Client
}

// NewSlack returns nil when no webhook is configured.
func NewSlack(cnf *config.Configuration) *Slack {
	if cnf.Notification.Slack.WebhookUrl == "" {
		return nil
	}
	return &Slack{
		webhookURL: cnf.Notification.Slack.WebhookUrl,
		project:    cnf.ProjectName,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Slack) message(err error, at time.Time) json.RawMessage {
	text, _ := json.Marshal(fmt.Sprintf("*Error:*\n%v", err.Error()))
	header, _ := json.Marshal(fmt.Sprintf("Error From %s 🐞", s.project))
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": %s,
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": %s
					}
				]
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%v"
					}
				]
			}
		]
	}`, header, text, at.Format(time.RFC822)))
}

// Send posts err to the webhook and waits for the answer.
func (s *Slack) Send(ctx context.Context, err error) error {
	data := s.message(err, time.Now())

	payload, err := request.ToJsonReq(&data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, payload)
	if err != nil {
		return err
	}

	_, err = request.Call(s.client, req, nil)
	return err
}

// NotifyError logs systemError and sends it to Slack in the background.
func (s *Slack) NotifyError(systemError error) {
	logrus.Error(systemError)
	if s == nil {
		return
	}
	go func(systemError error) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Send(ctx, systemError); err != nil {
			logrus.WithError(err).Error("failed to send slack notification")
		}
	}(systemError)
}
