package cloudmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/sitebuilder/internal/config"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	orderrepo "github.com/smallbiznis/sitebuilder/internal/order/repository"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/sitebuilder/internal/tenant/repository"
	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func TestNewPusherRequiresExporterAndEndpoint(t *testing.T) {
	cfg := config.Config{}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Cloud.Metrics.Enabled = true
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Cloud.Metrics.Exporter = exporterPrometheusRemoteWrite
	cfg.Cloud.Metrics.Endpoint = "http://prom.local/api/v1/write"
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Cloud.Metrics.Exporter = "statsd"
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}

func TestRefreshAndRemoteWrite(t *testing.T) {
	db, err := dbpkg.NewTest(&tenantdomain.Tenant{}, &orderdomain.Order{})
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []string{orderdomain.StatusPending, orderdomain.StatusActive, orderdomain.StatusActive} {
		require.NoError(t, orderrepo.Provide().Insert(ctx, db, &orderdomain.Order{
			ID:          snowflake.ID(1000 + i),
			OrderNumber: "ORD-240901-000" + string(rune('A'+i)),
			ClientName:  "c",
			BrandName:   "b",
			Email:       "c@example.com",
			Phone:       "1",
			PackageID:   1,
			PaymentType: orderdomain.PaymentTypeFull,
			Amount:      10,
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}))
	}
	require.NoError(t, tenantrepo.Provide().Insert(ctx, db, &tenantdomain.Tenant{
		ID: 1, OrderID: 1001, Subdomain: "a", BrandName: "a", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, tenantrepo.Provide().Insert(ctx, db, &tenantdomain.Tenant{
		ID: 2, OrderID: 1002, Subdomain: "b", BrandName: "b", IsActive: false, CreatedAt: now, UpdatedAt: now,
	}))

	var received prompb.WriteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&received)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(prometheus.NewRegistry(), NewRemoteWritePusher(srv.URL, "token"), db,
		tenantrepo.Provide(), orderrepo.Provide(), "i-1", "0.1.0", zap.NewNop())
	require.NoError(t, c.Push(ctx))

	values := map[string]float64{}
	for _, ts := range received.Timeseries {
		name, status := "", ""
		for _, l := range ts.Labels {
			switch l.Name {
			case "__name__":
				name = l.Value
			case "status":
				status = l.Value
			}
		}
		values[name+"/"+status] = ts.Samples[0].Value
	}
	assert.Equal(t, float64(2), values["sitebuilder_tenants_total/"])
	assert.Equal(t, float64(1), values["sitebuilder_tenants_active/"])
	assert.Equal(t, float64(2), values["sitebuilder_orders/active"])
	assert.Equal(t, float64(1), values["sitebuilder_orders/pending"])
}

func TestNilCloudMetricsIsSafe(t *testing.T) {
	var c *CloudMetrics
	assert.NoError(t, c.Push(context.Background()))
	assert.Nil(t, c.Registry())
}

func TestPushgatewayPusherDropsEmptyGrouping(t *testing.T) {
	p := NewPushgatewayPusher(" http://pgw.local ", "sitebuilder", map[string]string{
		"environment": "production",
		"instance":    "  ",
	})
	assert.Equal(t, "http://pgw.local", p.endpoint)
	assert.Equal(t, map[string]string{"environment": "production"}, p.grouping)

	empty := NewPushgatewayPusher("", "sitebuilder", nil)
	assert.ErrorIs(t, empty.Push(context.Background(), prometheus.NewRegistry()), errEndpointRequired)
}
