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

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jerry-enebeli/orderrelay"
	"github.com/jerry-enebeli/orderrelay/api/middleware"
)

type Api struct {
	relay  *orderrelay.Relay
	router *gin.Engine
	now    func() time.Time
	loc    *time.Location
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/process_order", a.ProcessOrders)
	router.POST("/process_order", a.ProcessOrders)

	router.GET("/orders/:id", a.GetOrder)

	router.GET("/batches/:id/stats", a.GetBatchStats)
	router.POST("/batches/:id/cancel", a.CancelBatch)
	return a.router
}

func NewAPI(relay *orderrelay.Relay) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf := relay.Config()

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery())
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))
	r.Use(middleware.NewAuthMiddleware(conf.Server).Authenticate())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{relay: relay, router: r, now: time.Now, loc: time.Local}
}
