// Package service implements the description workflow: gathering product
// facts, generating copy through the AI client and publishing the result
// back to the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/ai"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/event"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/repository"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// fallbackDescription is returned as a normal success when the AI reply is
// rejected or malformed, so the merchant always has something to edit.
const fallbackDescription = "This versatile product combines quality craftsmanship with everyday practicality. " +
	"Thoughtfully designed and built to last, it makes a great addition to any collection. " +
	"Edit this description to highlight the details your customers care about most."

const systemPrompt = "You are an expert e-commerce copywriter. " +
	"Write compelling, SEO-friendly product descriptions in natural, confident prose. " +
	"Do not use markdown, headings or bullet points."

// inFlightTTL bounds how long a crashed request can block its product.
const inFlightTTL = 2 * time.Minute

var (
	generationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "description_generation_total",
		Help: "Description generation attempts by outcome.",
	}, []string{"outcome"})

	publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "description_publish_total",
		Help: "Description publish attempts by outcome.",
	}, []string{"outcome"})
)

// ProductStore is the catalog surface the service depends on.
type ProductStore interface {
	ListProducts(ctx context.Context, first int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateDescription(ctx context.Context, id, descriptionHTML string) (*domain.Product, error)
}

// Completer is the text-generation surface the service depends on.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (string, error)
}

// ImageFetcher downloads and encodes product images for prompt context.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*ai.ImageData, error)
}

// Describer orchestrates the generate and publish flows.
type Describer struct {
	store    ProductStore
	ai       Completer
	images   ImageFetcher
	guard    repository.InFlightGuard
	events   *event.Producer
	pageSize int
	logger   *slog.Logger
}

func NewDescriber(
	store ProductStore,
	completer Completer,
	images ImageFetcher,
	guard repository.InFlightGuard,
	events *event.Producer,
	pageSize int,
	log *slog.Logger,
) *Describer {
	return &Describer{
		store:    store,
		ai:       completer,
		images:   images,
		guard:    guard,
		events:   events,
		pageSize: pageSize,
		logger:   log,
	}
}

// ListProducts returns the catalog page shown in the picker.
func (d *Describer) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return d.store.ListProducts(ctx, d.pageSize)
}

// Generate produces description copy for one product. The returned fallback
// flag is true when the AI reply was unusable and the canned placeholder was
// substituted; that case is a success, not an error.
func (d *Describer) Generate(ctx context.Context, productID string) (text string, fallback bool, err error) {
	log := logger.WithContext(ctx, d.logger)

	product, err := d.store.GetProduct(ctx, productID)
	if err != nil {
		return "", false, err
	}

	var image *ai.ImageData
	if product.FeaturedImageURL != "" && d.images != nil {
		image, err = d.images.Fetch(ctx, product.FeaturedImageURL)
		if err != nil {
			// Image context is optional; generation proceeds without it.
			log.Debug("image fetch failed, generating without image",
				"product_id", productID,
				"error", err,
			)
			image = nil
		}
	}

	text, err = d.ai.Complete(ctx, ai.CompletionRequest{
		System: systemPrompt,
		Prompt: buildPrompt(product, image != nil),
		Image:  image,
	})
	if errors.Is(err, ai.ErrUnusableResponse) {
		log.Warn("model reply unusable, returning placeholder description",
			"product_id", productID,
			"error", err,
		)
		generationTotal.WithLabelValues("fallback").Inc()
		d.events.DescriptionGenerated(ctx, logger.ShopFromContext(ctx), productID, true)
		return fallbackDescription, true, nil
	}
	if err != nil {
		generationTotal.WithLabelValues("error").Inc()
		return "", false, err
	}

	generationTotal.WithLabelValues("success").Inc()
	d.events.DescriptionGenerated(ctx, logger.ShopFromContext(ctx), productID, false)
	return text, false, nil
}

// Publish writes the description to the product verbatim and resolves the
// public URL, preferring the live storefront URL over the preview.
func (d *Describer) Publish(ctx context.Context, productID, description string) (*string, error) {
	updated, err := d.store.UpdateDescription(ctx, productID, description)
	if err != nil {
		publishTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	publishTotal.WithLabelValues("success").Inc()
	url := updated.PublicURL()
	var eventURL string
	if url != nil {
		eventURL = *url
	}
	d.events.DescriptionPublished(ctx, logger.ShopFromContext(ctx), productID, eventURL)
	return url, nil
}

// DescribeRequest is the tagged form payload of the describe endpoint.
type DescribeRequest struct {
	Action      string
	ProductID   string
	Description string
}

// DescribeResult is the normalized envelope the handler serializes. Exactly
// one of Error and the success fields is populated.
type DescribeResult struct {
	Status         int
	Error          string
	Description    string
	Success        bool
	OnlineStoreURL *string
}

// Handle dispatches a describe action. Each call performs at most one
// external flow: update publishes, everything else generates. Concurrent
// calls for the same product are rejected with a conflict.
func (d *Describer) Handle(ctx context.Context, req DescribeRequest) DescribeResult {
	if strings.TrimSpace(req.ProductID) == "" {
		return DescribeResult{Status: http.StatusBadRequest, Error: "Product ID is required"}
	}

	shop := logger.ShopFromContext(ctx)
	if d.guard != nil {
		ok, err := d.guard.Acquire(ctx, shop, req.ProductID, inFlightTTL)
		if err != nil {
			logger.WithContext(ctx, d.logger).Error("in-flight guard unavailable", "error", err)
			return DescribeResult{Status: http.StatusInternalServerError, Error: "Failed to process request"}
		}
		if !ok {
			return DescribeResult{Status: http.StatusConflict, Error: "A request for this product is already in progress"}
		}
		// Release must succeed even when the client disconnected mid-flight,
		// otherwise the product stays locked until the guard TTL expires.
		defer func() {
			releaseCtx := context.WithoutCancel(ctx)
			if err := d.guard.Release(releaseCtx, shop, req.ProductID); err != nil {
				logger.WithContext(ctx, d.logger).Error("release in-flight guard", "error", err)
			}
		}()
	}

	if req.Action == "update" {
		url, err := d.Publish(ctx, req.ProductID, req.Description)
		if err != nil {
			logger.WithContext(ctx, d.logger).Error("publish description",
				"product_id", req.ProductID,
				"error", err,
			)
			return DescribeResult{Status: http.StatusInternalServerError, Error: "Failed to update product description"}
		}
		return DescribeResult{Status: http.StatusOK, Success: true, OnlineStoreURL: url}
	}

	text, _, err := d.Generate(ctx, req.ProductID)
	if err != nil {
		logger.WithContext(ctx, d.logger).Error("generate description",
			"product_id", req.ProductID,
			"error", err,
		)
		return DescribeResult{
			Status: apperrors.HTTPStatus(err),
			Error:  generateErrorMessage(err),
		}
	}
	return DescribeResult{Status: http.StatusOK, Description: text}
}

func generateErrorMessage(err error) string {
	if errors.Is(err, apperrors.ErrNotFound) {
		return "Product not found"
	}
	return "Failed to generate product description"
}

func buildPrompt(product *domain.Product, imageAttached bool) string {
	var b strings.Builder
	b.WriteString("Write an SEO-friendly product description of approximately 150-200 words for the following product.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", product.Title)
	if summary := product.VariantSummary(); summary != "" {
		fmt.Fprintf(&b, "Variants: %s\n", summary)
	}
	if imageAttached {
		b.WriteString("\nA photo of the product is attached; use it for visual details.")
	}
	return b.String()
}
