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

/*
Package main provides the orderrelay CLI. migrate.go holds the commands
applying and rolling back the embedded schema migrations.
*/
package main

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/orderrelay"
	"github.com/jerry-enebeli/orderrelay/database"
)

func migrationSource() migrate.EmbedFileSystemMigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: orderrelay.SQLFiles,
		Root:       "sql",
	}
}

// migrateCommands creates the root command for migration-related operations.
func migrateCommands(r *relayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the orderrelay schema",
	}

	cmd.AddCommand(migrateDirectionCommand(r, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(r, "down", migrate.Down))

	return cmd
}

func migrateDirectionCommand(r *relayInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	var maxMigrations int

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("migrate %s", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.ConnectDB(cmd.Context(), r.cnf.DataSource.Dns)
			if err != nil {
				return fmt.Errorf("error connecting to database: %w", err)
			}
			defer db.Close()

			n, err := migrate.ExecMax(db, "postgres", migrationSource(), direction, maxMigrations)
			if err != nil {
				return fmt.Errorf("error migrating %s: %w", use, err)
			}

			if direction == migrate.Up {
				fmt.Printf("Applied %d migrations!\n", n)
			} else {
				fmt.Printf("Rolled back %d migrations!\n", n)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxMigrations, "max", 0, "maximum number of migrations to run, 0 for all")

	return cmd
}
