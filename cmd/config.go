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

package main

import (
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/orderrelay/config"
)

const masked = "********"

// redacted returns a copy of cnf with credentials masked.
func redacted(cnf config.Configuration) config.Configuration {
	mask := func(s *string) {
		if *s != "" {
			*s = masked
		}
	}
	mask(&cnf.OrderAPI.AccessToken)
	mask(&cnf.Server.SecretKey)
	mask(&cnf.DataSource.Dns)
	mask(&cnf.Redis.Dns)
	mask(&cnf.Notification.Slack.WebhookUrl)
	return cnf
}

func configCommands(r *relayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instance's computed configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), redacted(*r.cnf))
		},
	}

	return cmd
}
