package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/authorization"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	trafficdomain "github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminToken  = "admin-token"
	clientToken = "client-token"
)

type fakeAuthService struct {
	authdomain.Service
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Claims, error) {
	switch rawToken {
	case adminToken:
		return &authdomain.Claims{UserID: "101", Email: "admin@example.com", Role: authdomain.RoleAdmin}, nil
	case clientToken:
		return &authdomain.Claims{UserID: "202", Email: "client@example.com", Role: authdomain.RoleClient}, nil
	default:
		return nil, authdomain.ErrInvalidToken
	}
}

type fakeAuthorizer struct{}

func (fakeAuthorizer) Authorize(ctx context.Context, userID, role, object, action string) error {
	if role == string(authdomain.RoleAdmin) {
		return nil
	}
	return authorization.ErrForbidden
}

type fakeOrderService struct {
	orderdomain.Service

	createErr    error
	provision    tenantdomain.ProvisionResult
	receipt      *orderdomain.Receipt
	lastCreate   orderdomain.CreateRequest
	createCalled int
}

func (f *fakeOrderService) Create(ctx context.Context, req orderdomain.CreateRequest) (*orderdomain.CreateResult, error) {
	f.createCalled++
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &orderdomain.CreateResult{
		Order:      &orderdomain.Order{ID: snowflake.ID(1), OrderNumber: "ORD-241001-AB12", Amount: 1000000, Status: orderdomain.StatusPending},
		Payment:    &paymentdomain.Payment{ID: snowflake.ID(2), Amount: 1000000, Status: paymentdomain.StatusPending},
		PaymentURL: "https://pay.example.com/abc",
	}, nil
}

func (f *fakeOrderService) Get(ctx context.Context, idOrNumber string) (*orderdomain.Order, error) {
	if idOrNumber == "ORD-241001-AB12" {
		return &orderdomain.Order{ID: snowflake.ID(1), OrderNumber: idOrNumber}, nil
	}
	return nil, orderdomain.ErrNotFound
}

func (f *fakeOrderService) Provision(ctx context.Context, id string) (tenantdomain.ProvisionResult, error) {
	if id == "404" {
		return tenantdomain.ProvisionResult{}, orderdomain.ErrNotFound
	}
	return f.provision, nil
}

func (f *fakeOrderService) Receipt(ctx context.Context, idOrNumber string) (*orderdomain.Receipt, error) {
	if f.receipt == nil {
		return nil, orderdomain.ErrReceiptUnavailable
	}
	return f.receipt, nil
}

type fakePaymentService struct {
	paymentdomain.Service

	callbacks []gatewaydomain.Callback
	proof     *paymentdomain.ManualProofRequest
	proofBody []byte
}

func (f *fakePaymentService) HandleCallback(ctx context.Context, cb gatewaydomain.Callback) (*paymentdomain.Payment, error) {
	f.callbacks = append(f.callbacks, cb)
	if cb.GatewayRef == "" {
		return nil, paymentdomain.ErrMissingGatewayRef
	}
	if cb.GatewayRef != "known-ref" {
		return nil, paymentdomain.ErrNotFound
	}
	ref := cb.GatewayRef
	return &paymentdomain.Payment{GatewayRef: &ref, Status: cb.Status}, nil
}

func (f *fakePaymentService) ConfirmManualTransfer(ctx context.Context, req paymentdomain.ManualProofRequest) (*paymentdomain.Payment, error) {
	if req.ContentType == "application/pdf" {
		return nil, paymentdomain.ErrInvalidProofType
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.proof = &req
	f.proofBody = body
	return &paymentdomain.Payment{ID: snowflake.ID(9), Status: paymentdomain.StatusPending, ProofFile: "/uploads/proofs/x.png"}, nil
}

type fakeCatalogService struct {
	catalogdomain.Service

	listCalls int
	packages  []catalogdomain.Package
}

func (f *fakeCatalogService) ListPackages(ctx context.Context, activeOnly bool) ([]catalogdomain.Package, error) {
	f.listCalls++
	return f.packages, nil
}

func (f *fakeCatalogService) CreatePackage(ctx context.Context, req catalogdomain.PackageRequest) (catalogdomain.Package, error) {
	pkg := catalogdomain.Package{ID: snowflake.ID(77), Name: req.Name}
	f.packages = append(f.packages, pkg)
	return pkg, nil
}

type fakeStorage struct {
	key         string
	contentType string
	body        []byte
}

func (f *fakeStorage) Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.key = key
	f.contentType = contentType
	f.body = data
	return "/uploads/" + key, nil
}

type fakeTraffic struct {
	trafficdomain.Service

	recorded chan trafficdomain.RecordRequest
}

func (f *fakeTraffic) Record(ctx context.Context, req trafficdomain.RecordRequest) {
	f.recorded <- req
}

type testServer struct {
	srv      *Server
	router   *gin.Engine
	orders   *fakeOrderService
	payments *fakePaymentService
	catalog  *fakeCatalogService
	storage  *fakeStorage
	traffic  *fakeTraffic
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		orders:   &fakeOrderService{},
		payments: &fakePaymentService{},
		catalog:  &fakeCatalogService{packages: []catalogdomain.Package{{ID: snowflake.ID(5), Name: "Starter"}}},
		storage:  &fakeStorage{},
		traffic:  &fakeTraffic{recorded: make(chan trafficdomain.RecordRequest, 16)},
	}
	clk := clock.NewFakeClock(time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC))

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	ts.router = router
	ts.srv = NewServer(ServerParams{
		Gin:        router,
		Log:        zap.NewNop(),
		Clock:      clk,
		Authsvc:    &fakeAuthService{},
		AuthzSvc:   fakeAuthorizer{},
		OrderSvc:   ts.orders,
		PaymentSvc: ts.payments,
		CatalogSvc: ts.catalog,
		TrafficSvc: ts.traffic,
		Storage:    ts.storage,
		Storefront: config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig()),
	})
	return ts
}

func (ts *testServer) do(method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	ts.router.ServeHTTP(resp, req)
	return resp
}

func jsonHeaders(token string) map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestCreateOrderReturnsPaymentURL(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/orders", bytes.NewBufferString(`{"clientName":"Budi","brandName":"Kopi Budi","email":"budi@example.com","phone":"0812","packageId":"5","paymentType":"full"}`), jsonHeaders(""))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var body struct {
		Data orderdomain.CreateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "https://pay.example.com/abc", body.Data.PaymentURL)
	assert.Equal(t, "ORD-241001-AB12", body.Data.Order.OrderNumber)
	assert.Equal(t, "Kopi Budi", ts.orders.lastCreate.BrandName)
}

func TestCreateOrderErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		errType string
		message string
		field   string
		code    string
	}{
		{
			name:    "missing field",
			err:     &orderdomain.FieldError{Field: "email", Err: orderdomain.ErrRequired},
			status:  http.StatusBadRequest,
			errType: "validation_error",
			message: "validation error",
			field:   "email",
			code:    "required",
		},
		{
			name:    "unknown package on intake",
			err:     &orderdomain.FieldError{Field: "packageId", Err: orderdomain.ErrPackageNotFound},
			status:  http.StatusBadRequest,
			errType: "validation_error",
			message: "validation error",
			field:   "packageId",
			code:    "package_not_found",
		},
		{
			name:    "gateway not configured",
			err:     fmt.Errorf("resolve gateway: %w", gatewaydomain.ErrNotConfigured),
			status:  http.StatusInternalServerError,
			errType: "configuration_error",
			message: "payment gateway not configured",
		},
		{
			name:    "order number exhausted",
			err:     orderdomain.ErrOrderNumberExhausted,
			status:  http.StatusConflict,
			errType: "conflict",
			message: "could not allocate an order number",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.orders.createErr = tc.err

			resp := ts.do(http.MethodPost, "/orders", bytes.NewBufferString(`{}`), jsonHeaders(""))

			require.Equal(t, tc.status, resp.Code)
			payload := decodeError(t, resp)
			assert.Equal(t, tc.errType, payload.Type)
			assert.Equal(t, tc.message, payload.Message)
			if tc.field != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tc.field, payload.Errors[0].Field)
				assert.Equal(t, tc.code, payload.Errors[0].Code)
			}
		})
	}
}

func TestGetOrderByNumber(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/orders/ORD-241001-AB12", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(http.MethodGet, "/orders/ORD-000000-ZZZZ", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "order not found", decodeError(t, resp).Message)
}

func TestPaymentCallback(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, "/payments/callback", bytes.NewBufferString(`{"gatewayRef":"known-ref","status":"paid","method":"qris"}`), jsonHeaders(""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true}`, resp.Body.String())

	resp = ts.do(http.MethodPost, "/payments/callback", bytes.NewBufferString(`{"status":"paid"}`), jsonHeaders(""))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "gateway_ref", payload.Errors[0].Field)

	resp = ts.do(http.MethodPost, "/payments/callback", bytes.NewBufferString(`{"gatewayRef":"missing","status":"paid"}`), jsonHeaders(""))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, fileName))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestConfirmManualPayment(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"orderNumber": "ORD-241001-AB12"}, "proof", "transfer.png", "image/png", []byte("png-bytes"))
	resp := ts.do(http.MethodPost, "/payment/confirm", body, map[string]string{"Content-Type": contentType})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NotNil(t, ts.payments.proof)
	assert.Equal(t, "ORD-241001-AB12", ts.payments.proof.OrderNumber)
	assert.Equal(t, "image/png", ts.payments.proof.ContentType)
	assert.Equal(t, []byte("png-bytes"), ts.payments.proofBody)

	body, contentType = multipartBody(t, map[string]string{"orderNumber": "ORD-241001-AB12"}, "proof", "transfer.pdf", "application/pdf", []byte("%PDF"))
	resp = ts.do(http.MethodPost, "/payment/confirm", body, map[string]string{"Content-Type": contentType})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_proof_type", decodeError(t, resp).Errors[0].Code)

	body, contentType = multipartBody(t, map[string]string{"orderNumber": "ORD-241001-AB12"}, "", "", "", nil)
	resp = ts.do(http.MethodPost, "/payment/confirm", body, map[string]string{"Content-Type": contentType})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing_proof_file", decodeError(t, resp).Errors[0].Code)
}

func TestConfirmManualPaymentRejectsOversizedBody(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.storefront = config.NewStaticStorefrontConfigHolder(config.StorefrontConfig{
		MaxProofBytes:   16,
		ProofMimePrefix: "image/",
		MaxUploadBytes:  16,
	})

	big := bytes.Repeat([]byte("x"), multipartOverhead+64)
	body, contentType := multipartBody(t, map[string]string{"orderNumber": "ORD-241001-AB12"}, "proof", "big.png", "image/png", big)
	resp := ts.do(http.MethodPost, "/payment/confirm", body, map[string]string{"Content-Type": contentType})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "proof_too_large", decodeError(t, resp).Errors[0].Code)
	assert.Nil(t, ts.payments.proof)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/admin/packages", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.do(http.MethodGet, "/admin/packages", nil, jsonHeaders("bogus"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.do(http.MethodGet, "/admin/packages", nil, jsonHeaders(clientToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(http.MethodGet, "/admin/packages", nil, jsonHeaders(adminToken))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestProvisionOrderResponses(t *testing.T) {
	ts := newTestServer(t)

	ts.orders.provision = tenantdomain.ProvisionResult{
		Success: false,
		Error:   tenantdomain.ErrSubdomainTaken.Error(),
		Err:     tenantdomain.ErrSubdomainTaken,
	}
	resp := ts.do(http.MethodPost, "/admin/orders/1/provision", nil, jsonHeaders(adminToken))
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.JSONEq(t, `{"success":false,"error":"subdomain already taken","emailSent":false}`, resp.Body.String())

	ts.orders.provision = tenantdomain.ProvisionResult{
		Success: false,
		Error:   "database unavailable",
		Err:     errors.New("database unavailable"),
	}
	resp = ts.do(http.MethodPost, "/admin/orders/1/provision", nil, jsonHeaders(adminToken))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	ts.orders.provision = tenantdomain.ProvisionResult{
		Success:   true,
		Tenant:    &tenantdomain.Tenant{Subdomain: "kopi-budi"},
		EmailSent: true,
	}
	resp = ts.do(http.MethodPost, "/admin/orders/1/provision", nil, jsonHeaders(adminToken))
	require.Equal(t, http.StatusOK, resp.Code)
	var result tenantdomain.ProvisionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.True(t, result.EmailSent)
	assert.Equal(t, "kopi-budi", result.Tenant.Subdomain)

	resp = ts.do(http.MethodPost, "/admin/orders/404/provision", nil, jsonHeaders(adminToken))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadReceipt(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/orders/ORD-241001-AB12/receipt", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	ts.orders.receipt = &orderdomain.Receipt{FileName: "receipt-ord-241001-ab12.pdf", Content: []byte("%PDF-1.4")}
	resp = ts.do(http.MethodGet, "/orders/ORD-241001-AB12/receipt", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "receipt-ord-241001-ab12.pdf")
	assert.Equal(t, []byte("%PDF-1.4"), resp.Body.Bytes())
}

func TestUploadSanitizesFileName(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, nil, "file", "my logo (1).png", "image/png", []byte("logo"))
	resp := ts.do(http.MethodPost, "/uploads", body, map[string]string{
		"Content-Type":  contentType,
		"Authorization": "Bearer " + adminToken,
	})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	millis := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC).UnixMilli()
	expectedKey := fmt.Sprintf("files/%d-my_logo__1_.png", millis)
	assert.Equal(t, expectedKey, ts.storage.key)
	assert.JSONEq(t, fmt.Sprintf(`{"url":"/uploads/%s"}`, expectedKey), resp.Body.String())

	body, contentType = multipartBody(t, nil, "file", "x.png", "image/png", []byte("x"))
	resp = ts.do(http.MethodPost, "/uploads", body, map[string]string{"Content-Type": contentType})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPublicPackagesAreCachedUntilCatalogChanges(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := ts.do(http.MethodGet, "/packages", nil, nil)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Equal(t, 1, ts.catalog.listCalls)

	resp := ts.do(http.MethodPost, "/admin/packages", bytes.NewBufferString(`{"name":"Pro"}`), jsonHeaders(adminToken))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.do(http.MethodGet, "/packages", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, ts.catalog.listCalls)
	assert.Contains(t, resp.Body.String(), "Pro")
}

func TestTrafficRecordedForStorefrontPages(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/packages", nil)
	req.Header.Set("Referer", "https://google.com")
	req.Header.Set("User-Agent", "test-agent")
	ts.router.ServeHTTP(httptest.NewRecorder(), req)

	select {
	case hit := <-ts.traffic.recorded:
		assert.Equal(t, "/packages", hit.Path)
		assert.Equal(t, "https://google.com", hit.Referrer)
		assert.Equal(t, "test-agent", hit.UserAgent)
	case <-time.After(time.Second):
		t.Fatal("expected traffic to be recorded")
	}

	ts.do(http.MethodPost, "/payments/callback", bytes.NewBufferString(`{"gatewayRef":"known-ref","status":"paid"}`), jsonHeaders(""))
	ts.do(http.MethodGet, "/orders/ORD-000000-ZZZZ", nil, nil)
	select {
	case hit := <-ts.traffic.recorded:
		t.Fatalf("unexpected traffic record for %s", hit.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAdminInternalErrorsCarryMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	srv := &Server{}
	router.GET("/admin/boom", srv.AdminRoute(), func(c *gin.Context) {
		AbortWithError(c, errors.New("smtp dial timeout"))
	})
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, errors.New("smtp dial timeout"))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/admin/boom", nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "smtp dial timeout", decodeError(t, resp).Message)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, "internal server error", decodeError(t, resp).Message)
}

func TestTTLCacheExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := newTTLCache[int](time.Minute, clk.Now)

	cache.Set("k", []int{1, 2})
	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)

	clk.Advance(2 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok)

	var nilCache *ttlCache[int]
	nilCache.Set("k", []int{1})
	_, ok = nilCache.Get("k")
	assert.False(t, ok)
}
