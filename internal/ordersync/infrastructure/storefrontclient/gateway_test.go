package storefrontclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
	apperrors "github.com/qhato/ecommerce/pkg/errors"
	"github.com/qhato/ecommerce/pkg/testutil"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGateway(Config{BaseURL: srv.URL, AccessToken: "test-token", Timeout: 5 * time.Second}, nil), srv
}

func TestGateway_FetchRecentOrders_ParsesOnePage(t *testing.T) {
	// Arrange
	body := `{"data":{"orders":{"pageInfo":{"hasNextPage":false,"endCursor":""},"edges":[
		{"node":{"id":"gid://shopify/Order/1","legacyResourceId":"1","name":"#1001",
		"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z",
		"displayFinancialStatus":"PAID","displayFulfillmentStatus":"UNFULFILLED",
		"test":false,
		"totalPriceSet":{"shopMoney":{"amount":"19.99"}},
		"subtotalPriceSet":{"shopMoney":{"amount":"15.00"}},
		"totalTaxSet":{"shopMoney":{"amount":"2.00"}},
		"totalShippingPriceSet":{"shopMoney":{"amount":"2.99"}},
		"totalDiscountsSet":{"shopMoney":{"amount":"0.00"}},
		"customer":{"id":"c1","email":"a@example.com","firstName":"A","lastName":"B","phone":""},
		"lineItems":{"edges":[{"node":{"id":"li1","title":"Widget","sku":"WID-1","quantity":2,"taxable":true,
		"originalUnitPriceSet":{"shopMoney":{"amount":"7.50"}},
		"discountedUnitPriceSet":{"shopMoney":{"amount":"7.50"}}}}]}
		}}
	]}}}`

	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.Header.Get("X-Storefront-Access-Token"), "test-token", "access token header")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})

	// Act
	page, err := gw.FetchRecentOrders(context.Background(), domain.RecentOrdersFilter{UpdatedAtCutoff: time.Now()}, 50, "")

	// Assert
	testutil.AssertNoError(t, err, "fetch should succeed")
	testutil.AssertLen(t, page.Orders, 1, "one order parsed")
	testutil.AssertFalse(t, page.HasNext, "no next page")
	order := page.Orders[0]
	testutil.AssertEqual(t, order.LegacyID, "1", "legacy id")
	testutil.AssertEqual(t, order.FinancialStatus, domain.FinancialStatusPaid, "financial status")
	testutil.AssertLen(t, order.LineItems, 1, "line items")
	testutil.AssertEqual(t, order.LineItems[0].SKU, "WID-1", "sku")
}

func TestGateway_Do_ClassifiesRateLimitAsRetryable(t *testing.T) {
	// Arrange
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	// Act
	_, err := gw.FetchRecentOrders(context.Background(), domain.RecentOrdersFilter{UpdatedAtCutoff: time.Now()}, 50, "")

	// Assert
	testutil.AssertError(t, err, "429 should surface as an error")
	appErr, ok := err.(*apperrors.AppError)
	testutil.AssertTrue(t, ok, "error should be an AppError")
	testutil.AssertEqual(t, appErr.Code, apperrors.ErrCodeRateLimited, "should be RateLimited")
	testutil.AssertTrue(t, appErr.Retryable, "rate limit should be retryable")
	testutil.AssertEqual(t, appErr.RetryAfter, 7, "Retry-After header carried through")
}

func TestGateway_Do_ClassifiesUnauthorized(t *testing.T) {
	// Arrange
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	// Act
	_, err := gw.FetchRecentOrders(context.Background(), domain.RecentOrdersFilter{UpdatedAtCutoff: time.Now()}, 50, "")

	// Assert
	testutil.AssertError(t, err, "401 should surface as an error")
	appErr, ok := err.(*apperrors.AppError)
	testutil.AssertTrue(t, ok, "error should be an AppError")
	testutil.AssertEqual(t, appErr.Code, apperrors.ErrCodeUnauthorized, "should be Unauthorized")
	testutil.AssertFalse(t, appErr.Retryable, "unauthorized should not be retryable")
}

func TestGateway_Do_SurfacesGraphQLErrors(t *testing.T) {
	// Arrange
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(graphQLResponse{Errors: []graphQLError{{Message: "field not found"}}})
	})

	// Act
	_, err := gw.FetchRecentOrders(context.Background(), domain.RecentOrdersFilter{UpdatedAtCutoff: time.Now()}, 50, "")

	// Assert
	testutil.AssertErrorContains(t, err, "field not found", "graphql error message surfaced")
}
