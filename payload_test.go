package orderrelay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrderData(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{
			name: "object",
			raw:  `{"depotId":12,"customer":{"id":5},"products":[{"id":1,"quantity":2}]}`,
			want: `{"depotId":12,"customer":{"id":5},"products":[{"id":1,"quantity":2}]}`,
		},
		{
			name: "double encoded",
			raw:  `"{\"depotId\":12,\"customer\":{\"id\":5}}"`,
			want: `{"depotId":12,"customer":{"id":5}}`,
		},
		{
			name: "unknown fields kept",
			raw:  `{"depotId":"12","extra":{"a":[1,2]}}`,
			want: `{"depotId":"12","extra":{"a":[1,2]}}`,
		},
		{name: "empty", raw: ``, wantErr: "order_data is empty"},
		{name: "null", raw: `null`, wantErr: "order_data is empty"},
		{name: "invalid", raw: `{"depotId":`, wantErr: "order_data is not valid JSON"},
		{name: "string not json", raw: `"{not json"`, wantErr: "order_data string does not hold valid JSON"},
		{name: "array", raw: `[1,2]`, wantErr: "order_data must be a JSON object"},
		{name: "encoded array", raw: `"[1,2]"`, wantErr: "order_data must be a JSON object"},
		{name: "number", raw: `42`, wantErr: "order_data must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOrderData(json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				var payloadErr *PayloadError
				require.ErrorAs(t, err, &payloadErr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got.Raw))
		})
	}
}

func TestNormalizeOrderData_TypedView(t *testing.T) {
	got, err := NormalizeOrderData(json.RawMessage(`{"depotId":12,"customer":{"id":5},"products":[{"id":1,"quantity":2},{"id":2,"quantity":3}]}`))
	require.NoError(t, err)
	assert.Len(t, got.Payload.Products, 2)
	assert.Equal(t, int64(5), got.Payload.ItemCount())
}
