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
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/spf13/cobra"

	redis_db "github.com/jerry-enebeli/orderrelay/internal/redis-db"
	"github.com/jerry-enebeli/orderrelay/internal/tasks"
)

func initializeWorkerServer(r *relayInstance) (*asynq.Server, *asynq.Scheduler, asynq.RedisClientOpt, error) {
	if r.cnf.Redis.Dns == "" {
		return nil, nil, asynq.RedisClientOpt{}, errors.New("workers need redis.dns to be configured")
	}

	redisOpt, err := redis_db.AsynqOpt(r.cnf.Redis)
	if err != nil {
		return nil, nil, redisOpt, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	scheduler, entryID, err := tasks.NewScheduler(redisOpt, r.cnf.Processing)
	if err != nil {
		return nil, nil, redisOpt, err
	}
	log.Printf(" [*] Scheduled %s on %q (entry %s)", tasks.TypeProcessOrders, r.cnf.Processing.Schedule, entryID)

	return tasks.NewServer(redisOpt), scheduler, redisOpt, nil
}

// workerCommands defines the "workers" command: the periodic scheduler, the
// worker that runs each invocation and the asynqmon monitoring UI.
func workerCommands(r *relayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start orderrelay scheduler and workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shutdown, err := initializeObservability(ctx, r.cnf)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, scheduler, redisOpt, err := initializeWorkerServer(r)
			if err != nil {
				return err
			}

			mux := asynq.NewServeMux()
			tasks.NewHandler(r.relay).Register(mux)

			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: redisOpt,
			})
			go func() {
				monitoringAddr := fmt.Sprintf(":%s", r.cnf.Processing.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Printf("could not start asynqmon server: %v", err)
				}
			}()

			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("could not start scheduler: %w", err)
			}
			defer scheduler.Shutdown()

			if err := srv.Run(mux); err != nil {
				return fmt.Errorf("could not run server: %w", err)
			}
			return nil
		},
	}

	return cmd
}
