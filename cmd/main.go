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
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/orderrelay"
	"github.com/jerry-enebeli/orderrelay/config"
	"github.com/jerry-enebeli/orderrelay/database"
	"github.com/jerry-enebeli/orderrelay/internal/cache"
	redlock "github.com/jerry-enebeli/orderrelay/internal/lock"
	"github.com/jerry-enebeli/orderrelay/internal/notification"
	redis_db "github.com/jerry-enebeli/orderrelay/internal/redis-db"
)

// Relay represents the CLI application, encapsulating the root Cobra command.
type Relay struct {
	cmd *cobra.Command
}

// relayInstance holds what every command shares once preRun has loaded the
// configuration.
type relayInstance struct {
	relay      *orderrelay.Relay
	cnf        *config.Configuration
	redis      redis.UniversalClient
	configFile string
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and wires the relay before any command runs.
func preRun(app *relayInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cnf, err := config.Load(app.configFile)
		if err != nil {
			log.Fatal("error loading config: ", err)
		}

		relay, redisClient, err := setupRelay(cmd.Context(), cnf)
		if err != nil {
			notification.NewSlack(cnf).NotifyError(err)
			log.Fatal(err)
		}

		app.relay = relay
		app.redis = redisClient
		app.cnf = cnf
		return nil
	}
}

// setupRelay connects the data source and, when Redis is configured, the
// invocation lock.
func setupRelay(ctx context.Context, cnf *config.Configuration) (*orderrelay.Relay, redis.UniversalClient, error) {
	db, err := database.NewDataSource(ctx, cnf)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting datasource: %v", err)
	}

	opts := []orderrelay.Option{}
	if slack := notification.NewSlack(cnf); slack != nil {
		opts = append(opts, orderrelay.WithNotifier(slack))
	}

	var client redis.UniversalClient
	if cnf.Redis.Dns != "" {
		client, err = redis_db.NewRedisClient(ctx, cnf.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to redis: %v", err)
		}
		opts = append(opts,
			orderrelay.WithLocker(func() orderrelay.Locker {
				return redlock.NewProcessLocker(client)
			}),
			orderrelay.WithStatsCache(cache.NewRedisCache(client)),
		)
	} else {
		logrus.Warn("redis not configured, invocations run without the process lock")
	}

	return orderrelay.NewRelay(cnf, db, nil, opts...), client, nil
}

// NewCLI creates the command-line interface and its subcommands.
func NewCLI() *Relay {
	r := &relayInstance{}

	var rootCmd = &cobra.Command{
		Use:          "orderrelay",
		Short:        "Relay queued orders to the retail order API",
		SilenceUsage: true,
		Run:          func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&r.configFile, "config", "./orderrelay.json", "Configuration file for orderrelay")
	rootCmd.PersistentPreRunE = preRun(r)
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		r.close()
	}

	rootCmd.AddCommand(serverCommands(r))
	rootCmd.AddCommand(workerCommands(r))
	rootCmd.AddCommand(processCommands(r))
	rootCmd.AddCommand(cancelCommands(r))
	rootCmd.AddCommand(purgeCommands(r))
	rootCmd.AddCommand(statsCommands(r))
	rootCmd.AddCommand(orderCommands(r))
	rootCmd.AddCommand(configCommands(r))
	rootCmd.AddCommand(migrateCommands(r))

	return &Relay{cmd: rootCmd}
}

func (r *relayInstance) close() {
	if r.relay != nil {
		if err := r.relay.DataSource().Close(); err != nil {
			logrus.WithError(err).Warn("failed to close datasource")
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close redis client")
		}
	}
}

// executeCLI runs the root command. SIGINT and SIGTERM cancel the command
// context so an interrupted invocation leaves unclaimed orders pending.
func (w Relay) executeCLI() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := w.cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
