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

package database

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jerry-enebeli/orderrelay/config"

	_ "github.com/lib/pq"
)

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(ctx context.Context, configuration *config.Configuration) (IDataSource, error) {
	con, err := ConnectDB(ctx, configuration.DataSource.Dns)
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: con}, nil
}

// ConnectDB opens the postgres pool and waits for the server to answer,
// retrying the ping with exponential backoff for up to a minute.
func ConnectDB(ctx context.Context, dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func (d *Datasource) Close() error {
	return d.Conn.Close()
}
