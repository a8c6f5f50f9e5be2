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
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/orderrelay"
	model2 "github.com/jerry-enebeli/orderrelay/api/model"
	"github.com/jerry-enebeli/orderrelay/internal/apierror"
)

// ProcessOrders runs one invocation. Entry failures still answer 200; only
// invocation level failures answer 500. The invocation is detached from the
// request so a dropped caller does not cut the batch short.
func (a Api) ProcessOrders(c *gin.Context) {
	summary, err := a.relay.ProcessPending(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		resp := model2.ErrorResponse{Status: "error", Error: err.Error()}
		var invErr *orderrelay.InvocationError
		if errors.As(err, &invErr) {
			resp.Message = string(invErr.Kind)
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (a Api) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a numeric order id"})
		return
	}

	resp, err := a.relay.EntryWithResults(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetBatchStats(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.relay.BatchStats(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelBatch cancels the pending orders of a batch from a day onwards. An
// empty body cancels from today.
func (a Api) CancelBatch(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var req model2.CancelBatch
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateCancelBatch(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	from, err := orderrelay.ParseFromDate(req.FromDate, a.now(), a.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp := model2.CancelResponse{BatchID: id, FromDate: from.Format("2006-01-02"), DryRun: req.DryRun}
	if req.DryRun {
		plan, err := a.relay.PlanCancel(c.Request.Context(), id, from)
		if err != nil {
			c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		resp.Pending = plan.Pending
		c.JSON(http.StatusOK, resp)
		return
	}

	cancelled, err := a.relay.CancelBatchFrom(c.Request.Context(), id, from)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	resp.Cancelled = cancelled

	c.JSON(http.StatusOK, resp)
}
