package domain

import "strings"

// Product is a merchant product as returned by the Shopify Admin API.
// The ID is an opaque GID (e.g. "gid://shopify/Product/123") and is passed
// through the system verbatim.
type Product struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	DescriptionHTML       string    `json:"description_html"`
	FeaturedImageURL      string    `json:"featured_image_url,omitempty"`
	OnlineStoreURL        string    `json:"online_store_url,omitempty"`
	OnlineStorePreviewURL string    `json:"online_store_preview_url,omitempty"`
	Variants              []Variant `json:"variants"`
}

// Variant is a purchasable variation of a product. Price is the decimal
// string from the Admin API, carried unparsed.
type Variant struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Summary renders the variant as "Title - $Price", the form used in
// generation prompts.
func (v Variant) Summary() string {
	return v.Title + " - $" + v.Price
}

// VariantSummary joins all variant summaries with ", ".
func (p *Product) VariantSummary() string {
	summaries := make([]string, len(p.Variants))
	for i, v := range p.Variants {
		summaries[i] = v.Summary()
	}
	return strings.Join(summaries, ", ")
}

// PublicURL resolves the URL to show the merchant after publishing: the live
// storefront URL when the product is published, otherwise the preview URL,
// otherwise nil.
func (p *Product) PublicURL() *string {
	if p.OnlineStoreURL != "" {
		return &p.OnlineStoreURL
	}
	if p.OnlineStorePreviewURL != "" {
		return &p.OnlineStorePreviewURL
	}
	return nil
}
