// Package storefrontclient implements domain.StorefrontGateway against
// the storefront's order GraphQL API.
package storefrontclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/qhato/ecommerce/pkg/errors"
	"github.com/qhato/ecommerce/pkg/logging"

	"github.com/qhato/ecommerce/internal/ordersync/domain"
)

// Config is the static client configuration.
type Config struct {
	BaseURL    string
	AccessToken string
	Timeout    time.Duration
}

// Gateway implements domain.StorefrontGateway over HTTP + GraphQL.
type Gateway struct {
	cfg    Config
	client *http.Client
	log    logging.Logger
}

// NewGateway builds a gateway bound to one storefront instance.
func NewGateway(cfg Config, log logging.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logging.NewNoopLogger()
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

const recentOrdersQuery = `
query RecentOrders($query: String!, $first: Int!, $after: String) {
  orders(query: $query, first: $first, after: $after, sortKey: UPDATED_AT) {
    pageInfo { hasNextPage endCursor }
    edges { node {
      id legacyResourceId name createdAt updatedAt displayFinancialStatus
      displayFulfillmentStatus cancelledAt test
      totalPriceSet { shopMoney { amount } }
      subtotalPriceSet { shopMoney { amount } }
      totalTaxSet { shopMoney { amount } }
      totalShippingPriceSet { shopMoney { amount } }
      totalDiscountsSet { shopMoney { amount } }
      customer { id email firstName lastName phone }
      billingAddress { address1 address2 city province country zip }
      shippingAddress { address1 address2 city province country zip }
      shippingLine { title code discountedPriceSet { shopMoney { amount } } }
      transactions { kind status test amountSet { shopMoney { amount } } }
      lineItems(first: 250) { edges { node {
        id title sku quantity taxable
        originalUnitPriceSet { shopMoney { amount } }
        discountedUnitPriceSet { shopMoney { amount } }
        variant { id product { id } }
      } } }
    } }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// FetchRecentOrders implements domain.StorefrontGateway. filter is
// encoded into the GraphQL search query string; the colon-offset
// timestamp serialization is filter.CutoffRFC3339's job, not this
// client's.
func (g *Gateway) FetchRecentOrders(ctx context.Context, filter domain.RecentOrdersFilter, pageSize int, cursor string) (domain.RecentOrdersPage, error) {
	searchQuery := fmt.Sprintf("updated_at:>='%s'", filter.CutoffRFC3339())
	if !filter.IncludeTestOrders {
		searchQuery += " AND test:false"
	}
	if len(filter.FinancialStatuses) > 0 {
		parts := make([]string, 0, len(filter.FinancialStatuses))
		for _, s := range filter.FinancialStatuses {
			parts = append(parts, "financial_status:"+strings.ToLower(string(s)))
		}
		searchQuery += " AND (" + strings.Join(parts, " OR ") + ")"
	}
	if len(filter.FulfillmentStatuses) > 0 {
		parts := make([]string, 0, len(filter.FulfillmentStatuses))
		for _, s := range filter.FulfillmentStatuses {
			parts = append(parts, "fulfillment_status:"+strings.ToLower(s))
		}
		searchQuery += " AND (" + strings.Join(parts, " OR ") + ")"
	}

	vars := map[string]any{"query": searchQuery, "first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}

	var raw recentOrdersGraphQLPage
	if err := g.do(ctx, recentOrdersQuery, vars, &raw); err != nil {
		return domain.RecentOrdersPage{}, err
	}

	page := domain.RecentOrdersPage{
		HasNext:   raw.Orders.PageInfo.HasNextPage,
		EndCursor: raw.Orders.PageInfo.EndCursor,
	}
	for _, edge := range raw.Orders.Edges {
		page.Orders = append(page.Orders, edge.Node.toDomain())
	}
	return page, nil
}

// FetchOrderByID fetches a single order by its storefront GID. It
// requests only the order's identity, timestamp and status fields.
func (g *Gateway) FetchOrderByID(ctx context.Context, externalID string) (*domain.StorefrontOrder, error) {
	const query = `query OrderByID($id: ID!) { order(id: $id) { id legacyResourceId name createdAt updatedAt displayFinancialStatus displayFulfillmentStatus } }`

	var raw struct {
		Order *orderNode `json:"order"`
	}
	if err := g.do(ctx, query, map[string]any{"id": externalID}, &raw); err != nil {
		return nil, err
	}
	if raw.Order == nil {
		return nil, nil
	}
	order := raw.Order.toDomain()
	return &order, nil
}

// do executes one GraphQL request and classifies the response into the
// error-kind vocabulary RetryExecutor consumes.
func (g *Gateway) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return apperrors.PermanentAPI("encoding graphql request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/admin/api/graphql.json", bytes.NewReader(body))
	if err != nil {
		return apperrors.PermanentAPI("building graphql request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Storefront-Access-Token", g.cfg.AccessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.TransientAPI("storefront request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimited(retryAfterSeconds(resp))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.UnauthorizedGateway("storefront rejected credentials", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return apperrors.TransientAPI(fmt.Sprintf("storefront returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return apperrors.PermanentAPI(fmt.Sprintf("storefront returned %d", resp.StatusCode), nil)
	}

	var envelope graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.TransientAPI("decoding graphql response", err)
	}
	if len(envelope.Errors) > 0 {
		return apperrors.PermanentAPI(envelope.Errors[0].Message, nil)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperrors.TransientAPI("decoding graphql data payload", err)
	}
	return nil
}

func retryAfterSeconds(resp *http.Response) int {
	if v := resp.Header.Get("Retry-After"); v != "" {
		var seconds int
		if _, err := fmt.Sscanf(v, "%d", &seconds); err == nil {
			return seconds
		}
	}
	return 2
}
