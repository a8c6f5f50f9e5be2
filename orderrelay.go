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
	"context"
	"embed"
	"encoding/json"
	"time"

	"github.com/jerry-enebeli/orderrelay/config"
	"github.com/jerry-enebeli/orderrelay/database"
	"github.com/jerry-enebeli/orderrelay/internal/cache"
	"github.com/jerry-enebeli/orderrelay/internal/orderapi"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Submitter sends one normalized order to the external order API.
type Submitter interface {
	Submit(ctx context.Context, orderData json.RawMessage) (*orderapi.Response, error)
}

// Locker is an invocation wide mutual exclusion lease.
type Locker interface {
	Lock(ctx context.Context, ttl time.Duration) error
	Unlock(ctx context.Context) error
	ExtendLock(ctx context.Context, extension time.Duration) error
}

// Notifier receives invocation level failures.
type Notifier interface {
	NotifyError(err error)
}

// Relay drains orders_queue into the order API.
type Relay struct {
	cnf        *config.Configuration
	datasource database.IDataSource
	submitter  Submitter
	newLocker  func() Locker
	notifier   Notifier
	statsCache cache.Cache
	now        func() time.Time
}

type Option func(*Relay)

// WithLocker guards each invocation with a fresh lock from newLocker.
func WithLocker(newLocker func() Locker) Option {
	return func(r *Relay) {
		r.newLocker = newLocker
	}
}

func WithNotifier(n Notifier) Option {
	return func(r *Relay) {
		r.notifier = n
	}
}

// WithStatsCache caches batch stats for processing.stats_cache_ttl_sec.
func WithStatsCache(c cache.Cache) Option {
	return func(r *Relay) {
		r.statsCache = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

// NewRelay wires a relay. A nil submitter uses the order API client built
// from cnf.OrderAPI.
func NewRelay(cnf *config.Configuration, datasource database.IDataSource, submitter Submitter, opts ...Option) *Relay {
	if submitter == nil {
		submitter = orderapi.New(cnf.OrderAPI)
	}
	r := &Relay{
		cnf:        cnf,
		datasource: datasource,
		submitter:  submitter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) DataSource() database.IDataSource {
	return r.datasource
}

func (r *Relay) Config() *config.Configuration {
	return r.cnf
}
