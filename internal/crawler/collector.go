package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"coupang-review-harvester/internal/browser"
	"coupang-review-harvester/internal/models"
	"coupang-review-harvester/internal/ratelimit"
)

const (
	reviewTabSelector  = `a:has-text("상품평")`
	noReviewSelector   = ".sdp-review__article__no-review"
	noReviewMarkerText = "등록된 상품평이 없습니다"
	pageButtonSelector = ".js_reviewArticlePageBtn"
	reviewItemSelector = "article.sdp-review__article__list.js_reviewArticleReviewList"
)

var declaredCountPattern = regexp.MustCompile(`\((\d+)\)`)

// Collector paginates through one product's review section and assembles
// raw records. All failures below the product boundary are partial: the
// collector returns whatever it managed to gather and never errors.
type Collector struct {
	settle *ratelimit.Settler
	logger *slog.Logger
}

func NewCollector(settle *ratelimit.Settler, logger *slog.Logger) *Collector {
	return &Collector{
		settle: settle,
		logger: logger.With("component", "collector"),
	}
}

// Collect navigates to the product page, opens the review tab and walks
// every review page in order. Reviews come back in page order, then in
// on-page document order.
func (c *Collector) Collect(ctx context.Context, sess browser.Session, link string, product models.ProductContext) []models.RawReview {
	c.logger.Info("collecting reviews", "product", product.Name, "link", link)

	var reviews []models.RawReview

	if err := sess.Navigate(link); err != nil {
		c.logger.Error("failed to load product page", "link", link, "error", err)
		return reviews
	}
	if err := c.settle.Wait(ctx); err != nil {
		return reviews
	}

	if !c.openReviewTab(ctx, sess) {
		return reviews
	}

	if c.hasNoReviewMarker(sess) {
		c.logger.Info("product has no reviews", "product", product.Name)
		return reviews
	}

	totalPages := c.countPages(sess)

	for page := 1; page <= totalPages; page++ {
		if err := c.settle.Wait(ctx); err != nil {
			return reviews
		}

		items, err := sess.FindAll(reviewItemSelector)
		if err != nil || len(items) == 0 {
			c.logger.Info("no review items on page, stopping", "page", page)
			break
		}

		for _, item := range items {
			reviews = append(reviews, ExtractReview(item, page, product))
		}

		if page == totalPages {
			break
		}
		if !c.gotoPage(sess, page+1) {
			break
		}
	}

	c.logger.Info("review collection finished", "product", product.Name, "reviews", len(reviews))
	return reviews
}

// openReviewTab clicks the reviews tab and logs the declared review count
// from its label. A missing or unclickable tab means the product has no
// collectable review section.
func (c *Collector) openReviewTab(ctx context.Context, sess browser.Session) bool {
	tab, err := sess.FindOne(reviewTabSelector)
	if err != nil {
		c.logger.Warn("review tab not found")
		return false
	}

	label, _ := tab.Text()
	if match := declaredCountPattern.FindStringSubmatch(label); match != nil {
		if count, err := strconv.Atoi(match[1]); err == nil {
			c.logger.Info("declared review count", "count", count)
		}
	}

	if err := tab.Click(); err != nil {
		c.logger.Warn("failed to click review tab", "error", err)
		return false
	}

	if err := c.settle.Wait(ctx); err != nil {
		return false
	}
	return true
}

func (c *Collector) hasNoReviewMarker(sess browser.Session) bool {
	marker, err := sess.FindOne(noReviewSelector)
	if err != nil {
		return false
	}
	text, err := marker.Text()
	if err != nil {
		return false
	}
	return strings.Contains(text, noReviewMarkerText)
}

// countPages derives totalPages from the pagination controls. No buttons
// means a single implicit page.
func (c *Collector) countPages(sess browser.Session) int {
	buttons, err := sess.FindAll(pageButtonSelector)
	if err != nil || len(buttons) == 0 {
		return 1
	}
	return len(buttons)
}

// gotoPage triggers the pagination control for the given page index. The
// control is clicked via script because the overlay sometimes covers it.
func (c *Collector) gotoPage(sess browser.Session, page int) bool {
	selector := fmt.Sprintf(`%s[data-page="%d"]`, pageButtonSelector, page)

	button, err := sess.FindOne(selector)
	if err != nil {
		c.logger.Info("next page button not found, stopping", "page", page)
		return false
	}
	if err := button.ClickScript(); err != nil {
		c.logger.Info("failed to click next page button, stopping", "page", page, "error", err)
		return false
	}
	return true
}
