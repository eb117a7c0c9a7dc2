package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"coupang-review-harvester/internal/browser"
	"coupang-review-harvester/internal/models"
)

// SessionOpener hands out live browser sessions. *browser.Browser
// satisfies it.
type SessionOpener interface {
	NewSession() (browser.Session, error)
}

// Harvester sequences the whole crawl for one keyword: resolve products,
// open one browser session, collect reviews per product. Products are
// processed strictly one at a time because the session is not safe to
// share across concurrent navigations.
type Harvester struct {
	opener    SessionOpener
	resolver  *Resolver
	collector *Collector
	logger    *slog.Logger
}

func NewHarvester(opener SessionOpener, resolver *Resolver, collector *Collector, logger *slog.Logger) *Harvester {
	return &Harvester{
		opener:    opener,
		resolver:  resolver,
		collector: collector,
		logger:    logger.With("component", "harvester"),
	}
}

// Run executes one harvest for a keyword and page count. A failed session
// acquisition is fatal to the run; everything below the per-product
// boundary is caught, logged and skipped.
func (h *Harvester) Run(ctx context.Context, keyword string, pages int) ([]models.RawReview, error) {
	products := h.resolver.Search(ctx, keyword, pages)
	if len(products) == 0 {
		h.logger.Warn("no products found for keyword", "keyword", keyword)
		return nil, nil
	}

	sess, err := h.opener.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			h.logger.Warn("failed to close browser session", "error", err)
		}
	}()

	var all []models.RawReview
	for _, product := range products {
		if ctx.Err() != nil {
			h.logger.Info("harvest cancelled", "collected", len(all))
			break
		}
		all = append(all, h.collectProduct(ctx, sess, product)...)
	}

	h.logger.Info("harvest finished", "keyword", keyword, "products", len(products), "reviews", len(all))
	return all, nil
}

// collectProduct resolves one product's metadata and collects its
// reviews. A driver fault on one product must not abort the remaining
// products, so panics from the remote session are contained here.
func (h *Harvester) collectProduct(ctx context.Context, sess browser.Session, product models.ProductSummary) (reviews []models.RawReview) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("product crawl panicked, skipping", "product", product.Name, "panic", r)
			reviews = nil
		}
	}()

	brand, productID, option, err := h.resolver.Detail(ctx, product.Link)
	if err != nil {
		h.logger.Error("failed to resolve product detail, skipping", "product", product.Name, "error", err)
		return nil
	}

	pc := models.ProductContext{
		Name:      product.Name,
		Brand:     brand,
		Price:     product.Price,
		ProductID: productID,
		Option:    option,
	}

	return h.collector.Collect(ctx, sess, product.Link, pc)
}
