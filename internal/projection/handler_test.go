package projection

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/aevon-lab/clickstream/internal/api/v1"
	httperr "github.com/aevon-lab/clickstream/internal/core/errors"
	storagemocks "github.com/aevon-lab/clickstream/internal/mocks/storage"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, reader *storagemocks.ProjectionReader, url string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewService(reader).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandlers_StatusMapping(t *testing.T) {
	octFirst := time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		configure      func(reader *storagemocks.ProjectionReader)
	}{
		{
			name:           "funnel ok",
			url:            "/api/sales-funnel",
			expectedStatus: http.StatusOK,
			configure: func(reader *storagemocks.ProjectionReader) {
				reader.EXPECT().SalesFunnel(mock.Anything).Return([]v1.FunnelStage{}, nil).Once()
			},
		},
		{
			name:           "funnel store error returns 500",
			url:            "/api/sales-funnel",
			expectedStatus: http.StatusInternalServerError,
			configure: func(reader *storagemocks.ProjectionReader) {
				reader.EXPECT().SalesFunnel(mock.Anything).Return(nil, errors.New("relation does not exist")).Once()
			},
		},
		{
			name:           "default limit is 20",
			url:            "/api/products/top-converting",
			expectedStatus: http.StatusOK,
			configure: func(reader *storagemocks.ProjectionReader) {
				reader.EXPECT().TopConverting(mock.Anything, 20).Return([]v1.ProductConversion{}, nil).Once()
			},
		},
		{
			name:           "limit above 100 returns 400",
			url:            "/api/products/top-converting?limit=101",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *storagemocks.ProjectionReader) {},
		},
		{
			name:           "limit zero returns 400",
			url:            "/api/products/abandoned-carts?limit=0",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *storagemocks.ProjectionReader) {},
		},
		{
			name:           "non numeric limit returns 400",
			url:            "/api/products/abandoned-carts?limit=ten",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *storagemocks.ProjectionReader) {},
		},
		{
			name:           "abandoned carts with limit",
			url:            "/api/products/abandoned-carts?limit=5",
			expectedStatus: http.StatusOK,
			configure: func(reader *storagemocks.ProjectionReader) {
				reader.EXPECT().AbandonedCarts(mock.Anything, 5).Return([]v1.AbandonedCart{}, nil).Once()
			},
		},
		{
			name:           "session analytics store error returns 500",
			url:            "/api/sessions/analytics",
			expectedStatus: http.StatusInternalServerError,
			configure: func(reader *storagemocks.ProjectionReader) {
				reader.EXPECT().SessionAnalytics(mock.Anything).Return(nil, errors.New("timeout")).Once()
			},
		},
		{
			name:           "missing brand returns 400",
			url:            "/api/brands/trends",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *storagemocks.ProjectionReader) {},
		},
		{
			name:           "bad date returns 400",
			url:            "/api/brands/trends?brand=apple&start_date=10/01/2019",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *storagemocks.ProjectionReader) {},
		},
		{
			name:           "start after end returns 400",
			url:            "/api/brands/trends?brand=apple&start_date=2019-11-01&end_date=2019-10-01",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *storagemocks.ProjectionReader) {},
		},
		{
			name:           "unknown brand returns 404",
			url:            "/api/brands/trends?brand=nobrand&start_date=2019-10-01",
			expectedStatus: http.StatusNotFound,
			configure: func(reader *storagemocks.ProjectionReader) {
				reader.EXPECT().BrandTrends(mock.Anything, "nobrand", &octFirst, (*time.Time)(nil)).Return([]v1.BrandTrend{}, nil).Once()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader := storagemocks.NewProjectionReader(t)
			tc.configure(reader)

			resp := serve(t, reader, tc.url)

			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)
		})
	}
}

func TestHandleTopConverting_Body(t *testing.T) {
	reader := storagemocks.NewProjectionReader(t)
	reader.EXPECT().TopConverting(mock.Anything, 1).Return([]v1.ProductConversion{{
		ProductID:      42,
		BrandName:      strPtr("apple"),
		Price:          decimal.RequireFromString("10.50"),
		Views:          100,
		Carts:          10,
		Purchases:      5,
		ConversionRate: decimal.RequireFromString("5.00"),
		CartRate:       decimal.RequireFromString("10.00"),
	}}, nil).Once()

	resp := serve(t, reader, "/api/products/top-converting?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Products []map[string]any `json:"products"`
		Total    int              `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	p := body.Products[0]
	require.Equal(t, "Product 42", p["product_name"])
	require.Equal(t, "Uncategorized", p["category"])
	require.Equal(t, "apple", p["brand"])
	require.Equal(t, float64(100), p["views"])
	require.NotContains(t, p, "abandonment_count")
}

func TestHandleBrandTrends_Body(t *testing.T) {
	reader := storagemocks.NewProjectionReader(t)
	reader.EXPECT().BrandTrends(mock.Anything, "apple", (*time.Time)(nil), (*time.Time)(nil)).Return([]v1.BrandTrend{
		{Date: time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC), Brand: "apple", Views: 2, UniqueUsers: 2},
	}, nil).Once()

	resp := serve(t, reader, "/api/brands/trends?brand=apple")
	require.Equal(t, http.StatusOK, resp.Code)

	var body BrandTrendsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "apple", body.Brand)
	require.Equal(t, 1, body.TotalRecords)
	require.Equal(t, DateRange{Start: "2019-10-01", End: "2019-10-01"}, body.DateRange)
}

func TestWriteError_InternalErrorsAreGeneric(t *testing.T) {
	reader := storagemocks.NewProjectionReader(t)
	reader.EXPECT().SalesFunnel(mock.Anything).Return(nil, errors.New("password authentication failed for user etl")).Once()

	resp := serve(t, reader, "/api/sales-funnel")
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	var body httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, httperr.HttpInternalError, body.ErrorType)
	require.NotContains(t, resp.Body.String(), "password")
}
