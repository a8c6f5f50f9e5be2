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

package model

import "github.com/shopspring/decimal"

// OrderPayload is the typed view of order_data as understood by the retail
// bill endpoint. The payload forwarded to the API is the normalized raw
// object, so fields not listed here are kept.
type OrderPayload struct {
	DepotID  int64          `json:"depotId"`
	Customer OrderCustomer  `json:"customer"`
	Products []OrderProduct `json:"products"`
	Payment  *OrderPayment  `json:"payment,omitempty"`
}

type OrderCustomer struct {
	ID int64 `json:"id"`
}

type OrderProduct struct {
	ID       int64            `json:"id"`
	Quantity int64            `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

type OrderPayment struct {
	CustomerAmount decimal.Decimal `json:"customerAmount"`
}

// ItemCount is the total quantity across products.
func (p OrderPayload) ItemCount() int64 {
	var n int64
	for _, product := range p.Products {
		n += product.Quantity
	}
	return n
}
