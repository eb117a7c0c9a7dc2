package models

import "time"

// ProductContext is the product metadata attached to every review
// harvested from that product's page.
type ProductContext struct {
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Price     string `json:"price"`
	ProductID string `json:"product_id"`
	Option    string `json:"option"`
}

// ProductSummary is one search-result card: enough to rank a product and
// navigate to its detail page.
type ProductSummary struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Link  string `json:"link"`
}

// RawReview is one review exactly as captured from the page. Every field
// is a string: parsing failures belong to the normalizer, not the crawl,
// so the crawl never loses a record over a malformed value.
type RawReview struct {
	Product          ProductContext `json:"product"`
	Title            string         `json:"title"`
	Content          string         `json:"content"`
	Page             int            `json:"page"`
	Author           string         `json:"author"`
	Rating           string         `json:"rating"`
	WrittenAt        string         `json:"written_at"`
	Seller           string         `json:"seller"`
	PurchasedProduct string         `json:"purchased_product"`
	Images           string         `json:"images"`
	Survey           string         `json:"survey"`
	HelpfulCount     string         `json:"helpful_count"`
}

// CanonicalReview is the typed, persisted form of a review. ID is
// assigned by the database on insert. WrittenAt is nil when the source
// date was absent or unparsable.
type CanonicalReview struct {
	ID               int64      `json:"id"`
	ProductName      string     `json:"product_name"`
	Brand            string     `json:"brand"`
	Price            string     `json:"price"`
	ProductID        string     `json:"coupang_product_id"`
	Option           string     `json:"option"`
	Title            string     `json:"review_title"`
	Content          string     `json:"review_content"`
	Page             int        `json:"review_page"`
	Author           string     `json:"author"`
	Rating           float64    `json:"rating"`
	WrittenAt        *time.Time `json:"created_at"`
	Seller           string     `json:"seller"`
	PurchasedProduct string     `json:"actual_purchase_product_name"`
	Images           string     `json:"images"`
	Survey           string     `json:"survey_response"`
	HelpfulCount     int        `json:"helpful_count"`
}

// Sentiment is one inference result for a review body.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
