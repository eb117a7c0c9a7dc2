package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"coupang-review-harvester/internal/models"
)

const (
	productCardSelector = `[class="ProductUnit_productUnit__Qd6sv"]`
	productNameSelector = ".ProductUnit_productName__gre7e"
	productPriceSelect  = ".Price_priceValue__A4KOr"
	brandSelector       = "div.twc-text-sm.twc-text-blue-600"
	specListSelector    = "div.product-description ul"

	brandUnknown     = "브랜드 정보 없음"
	productIDUnknown = "없음"
	productIDLabel   = "쿠팡상품번호"
)

// Resolver finds candidate products for a keyword over plain HTTP and
// resolves each product's brand/id/option metadata from its detail page.
// The browser session is reserved for review collection; search pages
// render fine without one.
type Resolver struct {
	client   *resty.Client
	baseURL  string
	listSize int
	logger   *slog.Logger
}

func NewResolver(baseURL string, listSize int, proxyURL string, logger *slog.Logger) *Resolver {
	client := resty.New().
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	return &Resolver{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		listSize: listSize,
		logger:   logger.With("component", "resolver"),
	}
}

// Search walks the search-result pages for the keyword. A failed page is
// skipped; a page with zero recognizable cards ends the search. Search
// never fails the run: on total failure it returns an empty list.
func (r *Resolver) Search(ctx context.Context, keyword string, pages int) []models.ProductSummary {
	var products []models.ProductSummary

	for page := 1; page <= pages; page++ {
		searchURL := fmt.Sprintf("%s/np/search?component=&q=%s&page=%d&listSize=%d",
			r.baseURL, url.QueryEscape(keyword), page, r.listSize)

		r.logger.Info("searching products", "keyword", keyword, "page", page)

		doc, err := r.fetch(ctx, searchURL)
		if err != nil {
			r.logger.Error("search page request failed", "page", page, "error", err)
			continue
		}

		cards := doc.Find(productCardSelector)
		if cards.Length() == 0 {
			r.logger.Info("no products found, stopping search", "page", page)
			break
		}

		cards.Each(func(_ int, card *goquery.Selection) {
			name := strings.TrimSpace(card.Find(productNameSelector).Text())
			price := strings.TrimSpace(card.Find(productPriceSelect).Text())
			href, ok := card.Find("a").First().Attr("href")
			if name == "" || price == "" || !ok || href == "" {
				return
			}

			products = append(products, models.ProductSummary{
				Name:  name,
				Price: price,
				Link:  r.absoluteURL(href),
			})
		})
	}

	r.logger.Info("product search finished", "keyword", keyword, "products", len(products))
	return products
}

// Detail fetches a product page and parses its brand label and
// specification list. Spec lines are split on the first ":"; the line
// whose key contains the product-id label becomes the id, everything
// else accumulates into the option string.
func (r *Resolver) Detail(ctx context.Context, link string) (brand, productID, option string, err error) {
	doc, err := r.fetch(ctx, link)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to fetch product detail: %w", err)
	}

	brand = strings.TrimSpace(doc.Find(brandSelector).First().Text())
	if brand == "" {
		brand = brandUnknown
	}

	productID = productIDUnknown
	var options []string

	doc.Find(specListSelector).First().Find("li").Each(func(_ int, li *goquery.Selection) {
		text := strings.TrimSpace(li.Text())
		if text == "" {
			return
		}

		key, value, found := strings.Cut(text, ":")
		if !found {
			options = append(options, text)
			return
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.Contains(key, productIDLabel) {
			productID = value
			return
		}
		options = append(options, key+": "+value)
	})

	return brand, productID, strings.Join(options, joinSep), nil
}

func (r *Resolver) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	resp, err := r.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %s", resp.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func (r *Resolver) absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return r.baseURL + href
	}
	return href
}
