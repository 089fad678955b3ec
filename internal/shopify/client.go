// Package shopify is a client for the Shopify Admin GraphQL API scoped to
// the product operations the app needs: listing, fetching and updating
// product descriptions.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/httpclient"
)

const listProductsQuery = `
query listProducts($first: Int!) {
  products(first: $first) {
    edges {
      node {
        id
        title
        descriptionHtml
        onlineStoreUrl
        onlineStorePreviewUrl
        featuredImage { url }
        variants(first: 10) {
          edges { node { id title price } }
        }
      }
    }
  }
}`

const getProductQuery = `
query getProduct($id: ID!) {
  product(id: $id) {
    id
    title
    descriptionHtml
    onlineStoreUrl
    onlineStorePreviewUrl
    featuredImage { url }
    variants(first: 10) {
      edges { node { id title price } }
    }
  }
}`

const updateProductMutation = `
mutation updateProduct($input: ProductInput!) {
  productUpdate(input: $input) {
    product {
      id
      title
      descriptionHtml
      onlineStoreUrl
      onlineStorePreviewUrl
    }
    userErrors { field message }
  }
}`

// Doer is the HTTP client surface the Shopify client depends on.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the Admin API connection settings.
type Config struct {
	Shop        string // e.g. my-store.myshopify.com
	AccessToken string
	APIVersion  string
	// BaseURL overrides the shop-derived endpoint. Used in tests.
	BaseURL string
}

// Client talks to a single shop's Admin GraphQL endpoint.
type Client struct {
	cfg      Config
	endpoint string
	http     Doer
	logger   *slog.Logger
}

// NewClient builds a Client. Calls are single-attempt so that Shopify
// throttling surfaces immediately instead of being retried.
func NewClient(cfg Config, doer Doer, logger *slog.Logger) (*Client, error) {
	if cfg.Shop == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("shopify: shop domain is required")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("shopify: access token is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-07"
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.Shop, cfg.APIVersion)
	}
	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		http:     doer,
		logger:   logger,
	}, nil
}

// ListProducts returns the first page of products. Page size is fixed by the
// caller; there is no cursor handling.
func (c *Client) ListProducts(ctx context.Context, first int) ([]domain.Product, error) {
	var data struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := c.do(ctx, listProductsQuery, map[string]any{"first": first}, &data); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(data.Products.Edges))
	for _, edge := range data.Products.Edges {
		products = append(products, toDomain(edge.Node))
	}
	return products, nil
}

// GetProduct fetches a single product by its Admin API id. The id is passed
// through as-is; the caller owns its format.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var data struct {
		Product *productNode `json:"product"`
	}
	if err := c.do(ctx, getProductQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, apperrors.NotFound("product", id)
	}
	product := toDomain(*data.Product)
	return &product, nil
}

// UpdateDescription sets the product's descriptionHtml verbatim and returns
// the updated product, including its storefront URLs.
func (c *Client) UpdateDescription(ctx context.Context, id, descriptionHTML string) (*domain.Product, error) {
	var data struct {
		ProductUpdate struct {
			Product    *productNode `json:"product"`
			UserErrors []userError  `json:"userErrors"`
		} `json:"productUpdate"`
	}
	vars := map[string]any{
		"input": map[string]any{
			"id":              id,
			"descriptionHtml": descriptionHTML,
		},
	}
	if err := c.do(ctx, updateProductMutation, vars, &data); err != nil {
		return nil, err
	}
	if len(data.ProductUpdate.UserErrors) > 0 {
		first := data.ProductUpdate.UserErrors[0]
		return nil, apperrors.Upstream("shopify", fmt.Errorf("productUpdate: %s", first.Message))
	}
	if data.ProductUpdate.Product == nil {
		return nil, apperrors.Upstream("shopify", errors.New("productUpdate returned no product"))
	}
	product := toDomain(*data.ProductUpdate.Product)
	return &product, nil
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return apperrors.Internal(fmt.Errorf("marshal graphql request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Internal(fmt.Errorf("build graphql request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.Upstream("shopify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "shopify")
	}

	var envelope graphQLEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.Upstream("shopify", fmt.Errorf("decode graphql response: %w", err))
	}
	if len(envelope.Errors) > 0 {
		c.logger.Error("shopify graphql error", "message", envelope.Errors[0].Message)
		return apperrors.Upstream("shopify", fmt.Errorf("graphql: %s", envelope.Errors[0].Message))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return apperrors.Upstream("shopify", errors.New("response missing data"))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperrors.Upstream("shopify", fmt.Errorf("decode graphql data: %w", err))
	}
	return nil
}

func toDomain(node productNode) domain.Product {
	product := domain.Product{
		ID:                    node.ID,
		Title:                 node.Title,
		DescriptionHTML:       node.DescriptionHTML,
		OnlineStoreURL:        node.OnlineStoreURL,
		OnlineStorePreviewURL: node.OnlineStorePreviewURL,
	}
	if node.FeaturedImage != nil {
		product.FeaturedImageURL = node.FeaturedImage.URL
	}
	for _, edge := range node.Variants.Edges {
		product.Variants = append(product.Variants, domain.Variant{
			ID:    edge.Node.ID,
			Title: edge.Node.Title,
			Price: edge.Node.Price,
		})
	}
	return product
}
