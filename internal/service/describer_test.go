package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/ai"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/repository"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

type mockProductStore struct {
	mock.Mock
}

func (m *mockProductStore) ListProducts(ctx context.Context, first int) ([]domain.Product, error) {
	args := m.Called(ctx, first)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductStore) UpdateDescription(ctx context.Context, id, descriptionHTML string) (*domain.Product, error) {
	args := m.Called(ctx, id, descriptionHTML)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockImageFetcher struct {
	mock.Mock
}

func (m *mockImageFetcher) Fetch(ctx context.Context, url string) (*ai.ImageData, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.ImageData), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDescriber(store *mockProductStore, completer *mockCompleter, images *mockImageFetcher) *Describer {
	var fetcher ImageFetcher
	if images != nil {
		fetcher = images
	}
	return NewDescriber(store, completer, fetcher, repository.NewMemoryInFlightGuard(), nil, 20, testLogger())
}

func blueMug() *domain.Product {
	return &domain.Product{
		ID:    "gid://shopify/Product/1",
		Title: "Blue Mug",
		Variants: []domain.Variant{
			{ID: "gid://shopify/ProductVariant/1", Title: "Default", Price: "12.00"},
		},
	}
}

func TestGenerate_PromptComposition(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	store.On("GetProduct", mock.Anything, "gid://shopify/Product/1").Return(blueMug(), nil)

	var gotReq ai.CompletionRequest
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotReq = args.Get(1).(ai.CompletionRequest)
		}).
		Return("A lovely mug.", nil)

	d := newDescriber(store, completer, nil)
	text, fallback, err := d.Generate(context.Background(), "gid://shopify/Product/1")
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, "A lovely mug.", text)

	assert.Contains(t, gotReq.Prompt, "Title: Blue Mug")
	assert.Contains(t, gotReq.Prompt, "Variants: Default - $12.00")
	assert.NotContains(t, strings.ToLower(gotReq.Prompt), "photo", "no image clause without an image")
	assert.Nil(t, gotReq.Image)
	store.AssertExpectations(t)
}

func TestGenerate_WithImageContext(t *testing.T) {
	product := blueMug()
	product.FeaturedImageURL = "https://cdn.example/mug.jpg"

	store := &mockProductStore{}
	completer := &mockCompleter{}
	images := &mockImageFetcher{}

	store.On("GetProduct", mock.Anything, product.ID).Return(product, nil)
	images.On("Fetch", mock.Anything, "https://cdn.example/mug.jpg").
		Return(&ai.ImageData{MediaType: "image/jpeg", Base64Data: "aGk="}, nil)

	var gotReq ai.CompletionRequest
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotReq = args.Get(1).(ai.CompletionRequest)
		}).
		Return("ok", nil)

	d := newDescriber(store, completer, images)
	_, _, err := d.Generate(context.Background(), product.ID)
	require.NoError(t, err)

	require.NotNil(t, gotReq.Image)
	assert.Equal(t, "image/jpeg", gotReq.Image.MediaType)
	assert.Contains(t, gotReq.Prompt, "photo of the product is attached")
}

func TestGenerate_ImageFetchFailureIsNonFatal(t *testing.T) {
	product := blueMug()
	product.FeaturedImageURL = "https://cdn.example/mug.jpg"

	store := &mockProductStore{}
	completer := &mockCompleter{}
	images := &mockImageFetcher{}

	store.On("GetProduct", mock.Anything, product.ID).Return(product, nil)
	images.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("cdn down"))

	var gotReq ai.CompletionRequest
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotReq = args.Get(1).(ai.CompletionRequest)
		}).
		Return("still works", nil)

	d := newDescriber(store, completer, images)
	text, fallback, err := d.Generate(context.Background(), product.ID)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, "still works", text)
	assert.Nil(t, gotReq.Image, "generation proceeds without image context")
}

func TestGenerate_UnusableReplyFallsBack(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	store.On("GetProduct", mock.Anything, mock.Anything).Return(blueMug(), nil)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return("", ai.ErrUnusableResponse)

	d := newDescriber(store, completer, nil)
	text, fallback, err := d.Generate(context.Background(), "gid://shopify/Product/1")
	require.NoError(t, err, "an unusable reply is a success, not an error")
	assert.True(t, fallback)
	assert.Equal(t, fallbackDescription, text)
}

func TestGenerate_TransportFailureIsAnError(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	store.On("GetProduct", mock.Anything, mock.Anything).Return(blueMug(), nil)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return("", apperrors.Upstream("anthropic", errors.New("connection refused")))

	d := newDescriber(store, completer, nil)
	_, _, err := d.Generate(context.Background(), "gid://shopify/Product/1")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestGenerate_ProductNotFound(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	store.On("GetProduct", mock.Anything, mock.Anything).
		Return(nil, apperrors.NotFound("product", "gid://shopify/Product/404"))

	d := newDescriber(store, completer, nil)
	_, _, err := d.Generate(context.Background(), "gid://shopify/Product/404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	completer.AssertNotCalled(t, "Complete")
}

func TestPublish_ResolvesPublicURL(t *testing.T) {
	tests := []struct {
		name       string
		storeURL   string
		previewURL string
		want       *string
	}{
		{
			name:       "storefront url preferred",
			storeURL:   "https://shop.example/products/mug",
			previewURL: "https://shop.example/preview/mug",
			want:       ptr("https://shop.example/products/mug"),
		},
		{
			name:       "preview fallback",
			previewURL: "https://shop.example/preview/mug",
			want:       ptr("https://shop.example/preview/mug"),
		},
		{
			name: "no url",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := blueMug()
			updated.OnlineStoreURL = tt.storeURL
			updated.OnlineStorePreviewURL = tt.previewURL

			store := &mockProductStore{}
			store.On("UpdateDescription", mock.Anything, updated.ID, "<p>new</p>").Return(updated, nil)

			d := newDescriber(store, &mockCompleter{}, nil)
			url, err := d.Publish(context.Background(), updated.ID, "<p>new</p>")
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
		})
	}
}

func TestHandle_MissingProductID(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	d := newDescriber(store, completer, nil)
	for _, action := range []string{"generate", "update", ""} {
		result := d.Handle(context.Background(), DescribeRequest{Action: action})
		assert.Equal(t, http.StatusBadRequest, result.Status)
		assert.Equal(t, "Product ID is required", result.Error)
	}

	store.AssertNotCalled(t, "GetProduct")
	store.AssertNotCalled(t, "UpdateDescription")
	completer.AssertNotCalled(t, "Complete")
}

func TestHandle_UpdateInvokesPublisherOnly(t *testing.T) {
	updated := blueMug()
	updated.OnlineStoreURL = "https://shop.example/products/mug"

	store := &mockProductStore{}
	completer := &mockCompleter{}
	store.On("UpdateDescription", mock.Anything, updated.ID, "").Return(updated, nil)

	d := newDescriber(store, completer, nil)
	result := d.Handle(context.Background(), DescribeRequest{Action: "update", ProductID: updated.ID})

	assert.Equal(t, http.StatusOK, result.Status)
	assert.True(t, result.Success)
	require.NotNil(t, result.OnlineStoreURL)
	assert.Equal(t, "https://shop.example/products/mug", *result.OnlineStoreURL)
	assert.Empty(t, result.Error)

	store.AssertNumberOfCalls(t, "UpdateDescription", 1)
	completer.AssertNotCalled(t, "Complete")
}

func TestHandle_UpdateFailureIsGeneric(t *testing.T) {
	store := &mockProductStore{}
	store.On("UpdateDescription", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.Upstream("shopify", errors.New("userErrors")))

	d := newDescriber(store, &mockCompleter{}, nil)
	result := d.Handle(context.Background(), DescribeRequest{Action: "update", ProductID: "gid://shopify/Product/1"})

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, "Failed to update product description", result.Error)
	assert.False(t, result.Success)
}

func TestHandle_UnrecognizedActionGenerates(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	store.On("GetProduct", mock.Anything, mock.Anything).Return(blueMug(), nil)
	completer.On("Complete", mock.Anything, mock.Anything).Return("A lovely mug.", nil)

	d := newDescriber(store, completer, nil)
	result := d.Handle(context.Background(), DescribeRequest{Action: "bogus", ProductID: "gid://shopify/Product/1"})

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "A lovely mug.", result.Description)
	store.AssertNotCalled(t, "UpdateDescription")
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestHandle_GenerateTransportFailure(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	store.On("GetProduct", mock.Anything, mock.Anything).Return(blueMug(), nil)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return("", apperrors.Upstream("anthropic", errors.New("dial tcp: refused")))

	d := newDescriber(store, completer, nil)
	result := d.Handle(context.Background(), DescribeRequest{Action: "generate", ProductID: "gid://shopify/Product/1"})

	assert.Equal(t, http.StatusBadGateway, result.Status)
	assert.Equal(t, "Failed to generate product description", result.Error)
	assert.Empty(t, result.Description)
}

func TestHandle_ConcurrentCallsForSameProductConflict(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	firstEntered := make(chan struct{})
	release := make(chan struct{})

	store.On("GetProduct", mock.Anything, mock.Anything).Return(blueMug(), nil)
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(firstEntered)
			<-release
		}).
		Return("slow reply", nil)

	d := newDescriber(store, completer, nil)

	results := make(chan DescribeResult, 1)
	go func() {
		results <- d.Handle(context.Background(), DescribeRequest{Action: "generate", ProductID: "gid://shopify/Product/1"})
	}()

	<-firstEntered
	second := d.Handle(context.Background(), DescribeRequest{Action: "generate", ProductID: "gid://shopify/Product/1"})
	assert.Equal(t, http.StatusConflict, second.Status)
	assert.NotEmpty(t, second.Error)

	close(release)
	select {
	case first := <-results:
		assert.Equal(t, http.StatusOK, first.Status)
		assert.Equal(t, "slow reply", first.Description)
	case <-time.After(2 * time.Second):
		t.Fatal("first request did not finish")
	}
}

type recordingGuard struct {
	repository.InFlightGuard
	releaseCtx context.Context
}

func (g *recordingGuard) Release(ctx context.Context, shop, productID string) error {
	g.releaseCtx = ctx
	return g.InFlightGuard.Release(ctx, shop, productID)
}

func TestHandle_ReleasesGuardAfterClientDisconnect(t *testing.T) {
	store := &mockProductStore{}
	completer := &mockCompleter{}

	ctx, cancel := context.WithCancel(context.Background())
	store.On("GetProduct", mock.Anything, mock.Anything).Return(blueMug(), nil)
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", apperrors.Upstream("anthropic", context.Canceled))

	guard := &recordingGuard{InFlightGuard: repository.NewMemoryInFlightGuard()}
	d := NewDescriber(store, completer, nil, guard, nil, 20, testLogger())

	result := d.Handle(ctx, DescribeRequest{Action: "generate", ProductID: "gid://shopify/Product/1"})
	assert.Equal(t, http.StatusBadGateway, result.Status)

	require.NotNil(t, guard.releaseCtx)
	assert.NoError(t, guard.releaseCtx.Err(), "guard release should survive request cancellation")

	ok, err := guard.Acquire(context.Background(), "", "gid://shopify/Product/1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "product should be unlocked after the canceled request returns")
}

func ptr(s string) *string {
	return &s
}
