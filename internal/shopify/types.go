package shopify

import "encoding/json"

// graphQLRequest is the Admin API request envelope.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLEnvelope is the Admin API response envelope. Data is left raw so
// each operation can decode its own shape.
type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// userError is the mutation-level error shape returned inside a successful
// GraphQL response.
type userError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

type imageNode struct {
	URL string `json:"url"`
}

type variantNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

type productNode struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	DescriptionHTML       string     `json:"descriptionHtml"`
	OnlineStoreURL        string     `json:"onlineStoreUrl"`
	OnlineStorePreviewURL string     `json:"onlineStorePreviewUrl"`
	FeaturedImage         *imageNode `json:"featuredImage"`
	Variants              struct {
		Edges []struct {
			Node variantNode `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}
