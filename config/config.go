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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT             = "5004"
	DEFAULT_ORDER_API_URL    = "https://pos.open.nhanh.vn/v3.0"
	DEFAULT_API_TIMEOUT_SEC  = 30
	DEFAULT_BATCH_SIZE       = 10
	DEFAULT_LOCK_TTL_SEC     = 300
	DEFAULT_SCHEDULE         = "@every 1m"
	DEFAULT_PURGE_CHUNK_SIZE = 1000
	DEFAULT_STATS_CACHE_TTL  = 30
)

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"SSL"`
	Secure    bool   `json:"secure" envconfig:"SECURE"`
	SecretKey string `json:"secret_key" envconfig:"SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"SKIP_TLS_VERIFY"`
}

// OrderAPIConfig holds the credentials for the external retail bill API.
type OrderAPIConfig struct {
	BaseURL     string `json:"base_url" envconfig:"BASE_URL"`
	AppID       string `json:"app_id" envconfig:"APP_ID"`
	BusinessID  string `json:"business_id" envconfig:"BUSINESS_ID"`
	AccessToken string `json:"access_token" envconfig:"ACCESS_TOKEN"`
	TimeoutSec  int    `json:"timeout_sec" envconfig:"TIMEOUT_SEC"`
}

type ProcessingConfig struct {
	BatchSize      int    `json:"batch_size" envconfig:"LIMIT"`
	Concurrency    int    `json:"concurrency" envconfig:"CONCURRENCY"`
	LockTTLSec     int    `json:"lock_ttl_sec" envconfig:"LOCK_TTL_SEC"`
	Schedule       string `json:"schedule" envconfig:"SCHEDULE"`
	MonitoringPort string `json:"monitoring_port" envconfig:"MONITORING_PORT"`
	PurgeChunkSize int    `json:"purge_chunk_size" envconfig:"PURGE_CHUNK_SIZE"`
	StatsCacheTTL  int    `json:"stats_cache_ttl_sec" envconfig:"STATS_CACHE_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"RPS"`
	Burst              *int     `json:"burst" envconfig:"BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack" envconfig:"SLACK"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server" envconfig:"SERVER"`
	DataSource      DataSourceConfig `json:"data_source" envconfig:"DATA_SOURCE"`
	Redis           RedisConfig      `json:"redis" envconfig:"REDIS"`
	OrderAPI        OrderAPIConfig   `json:"order_api" envconfig:"ORDER_API"`
	Processing      ProcessingConfig `json:"processing" envconfig:"PROCESS"`
	Notification    Notification     `json:"notification" envconfig:"NOTIFICATION"`
	RateLimit       RateLimitConfig  `json:"rate_limit" envconfig:"RATE_LIMIT"`
}

// Load reads the optional JSON file, applies RELAY_* environment overrides
// and fills defaults. The returned configuration is treated as immutable.
func Load(file string) (*Configuration, error) {
	logger()

	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", file, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables, e.g. RELAY_DATA_SOURCE_DNS
	err = envconfig.Process("relay", &cnf)
	if err != nil {
		return nil, err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return nil, err
	}

	return &cnf, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Order Relay"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.OrderAPI.BaseURL = strings.TrimRight(strings.TrimSpace(cnf.OrderAPI.BaseURL), "/")
	cnf.OrderAPI.AppID = strings.TrimSpace(cnf.OrderAPI.AppID)
	cnf.OrderAPI.BusinessID = strings.TrimSpace(cnf.OrderAPI.BusinessID)
	cnf.OrderAPI.AccessToken = strings.TrimSpace(cnf.OrderAPI.AccessToken)

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.OrderAPI.BaseURL == "" {
		cnf.OrderAPI.BaseURL = DEFAULT_ORDER_API_URL
	}
	if cnf.OrderAPI.TimeoutSec <= 0 {
		cnf.OrderAPI.TimeoutSec = DEFAULT_API_TIMEOUT_SEC
	}

	if cnf.Processing.BatchSize <= 0 {
		cnf.Processing.BatchSize = DEFAULT_BATCH_SIZE
	}
	if cnf.Processing.Concurrency <= 0 {
		cnf.Processing.Concurrency = 1
	}
	if cnf.Processing.LockTTLSec <= 0 {
		cnf.Processing.LockTTLSec = DEFAULT_LOCK_TTL_SEC
	}
	if cnf.Processing.Schedule == "" {
		cnf.Processing.Schedule = DEFAULT_SCHEDULE
	}
	if cnf.Processing.MonitoringPort == "" {
		cnf.Processing.MonitoringPort = "5005"
	}
	if cnf.Processing.PurgeChunkSize <= 0 {
		cnf.Processing.PurgeChunkSize = DEFAULT_PURGE_CHUNK_SIZE
	}
	if cnf.Processing.StatsCacheTTL <= 0 {
		cnf.Processing.StatsCacheTTL = DEFAULT_STATS_CACHE_TTL
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// Validate reports the order API settings that are missing. The relay
// refuses every invocation while this returns an error.
func (c OrderAPIConfig) Validate() error {
	var missing []string
	if c.AppID == "" {
		missing = append(missing, "app_id")
	}
	if c.BusinessID == "" {
		missing = append(missing, "business_id")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("order_api %s not set", strings.Join(missing, ", "))
	}
	return nil
}

func (c OrderAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c ProcessingConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSec) * time.Second
}

func (c ProcessingConfig) StatsCacheTTLDuration() time.Duration {
	return time.Duration(c.StatsCacheTTL) * time.Second
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
