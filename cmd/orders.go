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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/orderrelay"
	redis_db "github.com/jerry-enebeli/orderrelay/internal/redis-db"
	"github.com/jerry-enebeli/orderrelay/internal/tasks"
)

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// confirm asks a yes/no question on in. Only "y" and "yes" proceed.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (yes/no): ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// processCommands runs one invocation in the foreground, or enqueues one for
// the workers with --enqueue.
func processCommands(r *relayInstance) *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "process the pending orders that are due now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if enqueue {
				redisOpt, err := redis_db.AsynqOpt(r.cnf.Redis)
				if err != nil {
					return fmt.Errorf("error parsing Redis URL: %v", err)
				}
				client := asynq.NewClient(redisOpt)
				defer client.Close()

				_, err = tasks.Enqueue(cmd.Context(), client, "cli")
				return err
			}

			summary, err := r.relay.ProcessPending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "enqueue a process task for the workers instead of running it here")

	return cmd
}

// cancelCommands cancels the pending orders of a batch from a day onwards.
// The day is YYYY-MM-DD, a day of the current month, or today when omitted.
func cancelCommands(r *relayInstance) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cancel <batch-id> [from-date]",
		Short: "cancel pending orders of a batch from a date",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			batchID := args[0]
			fromValue := ""
			if len(args) == 2 {
				fromValue = args[1]
			}

			from, err := orderrelay.ParseFromDate(fromValue, time.Now(), time.Local)
			if err != nil {
				return err
			}

			plan, err := r.relay.PlanCancel(cmd.Context(), batchID, from)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Batch: %s\n", plan.Batch.ID)
			fmt.Fprintf(out, "  start date:   %s\n", plan.Batch.StartDate.Format(time.DateOnly))
			fmt.Fprintf(out, "  end date:     %s\n", plan.Batch.EndDate.Format(time.DateOnly))
			fmt.Fprintf(out, "  total orders: %d\n", plan.Batch.TotalOrders)

			if plan.Pending == 0 {
				fmt.Fprintf(out, "No pending orders from %s onwards\n", from.Format(time.DateOnly))
				return nil
			}

			fmt.Fprintf(out, "Found %d pending orders from %s onwards\n", plan.Pending, from.Format(time.DateOnly))
			if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Cancel %d orders?", plan.Pending)) {
				fmt.Fprintln(out, "Aborted")
				return nil
			}

			cancelled, err := r.relay.CancelBatchFrom(cmd.Context(), batchID, from)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cancelled %d orders\n", cancelled)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func purgeCommands(r *relayInstance) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge-cancelled",
		Short: "delete every cancelled order from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes && !confirm(cmd.InOrStdin(), out, "Delete all cancelled orders permanently?") {
				fmt.Fprintln(out, "Aborted")
				return nil
			}

			deleted, err := r.relay.PurgeCancelled(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge stopped after %d deletions: %w", deleted, err)
			}
			fmt.Fprintf(out, "Deleted %d cancelled orders\n", deleted)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func statsCommands(r *relayInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <batch-id>",
		Short: "print the order counts and revenue of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := r.relay.BatchStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func orderCommands(r *relayInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>",
		Short: "print a queued order and its processing attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("order id must be numeric: %w", err)
			}

			details, err := r.relay.EntryWithResults(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), details)
		},
	}
}
