package etl

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coupang-review-harvester/internal/models"
)

const writtenAtLayout = "2006.01.02"

var digitsPattern = regexp.MustCompile(`\d+`)

// Normalizer converts raw harvested records into the canonical typed
// schema. It is pure and total: unparsable values degrade to documented
// defaults (0.0, 0, nil) and never raise.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With("component", "normalizer")}
}

// Normalize maps every raw review to its canonical form, in order.
func (n *Normalizer) Normalize(raws []models.RawReview) []models.CanonicalReview {
	if len(raws) == 0 {
		return nil
	}

	canonical := make([]models.CanonicalReview, 0, len(raws))
	for _, raw := range raws {
		canonical = append(canonical, n.normalizeOne(raw))
	}

	n.logger.Info("normalized reviews", "count", len(canonical))
	return canonical
}

func (n *Normalizer) normalizeOne(raw models.RawReview) models.CanonicalReview {
	return models.CanonicalReview{
		ProductName:      strings.TrimSpace(raw.Product.Name),
		Brand:            strings.TrimSpace(raw.Product.Brand),
		Price:            strings.TrimSpace(raw.Product.Price),
		ProductID:        strings.TrimSpace(raw.Product.ProductID),
		Option:           strings.TrimSpace(raw.Product.Option),
		Title:            strings.TrimSpace(raw.Title),
		Content:          strings.TrimSpace(raw.Content),
		Page:             raw.Page,
		Author:           strings.TrimSpace(raw.Author),
		Rating:           parseRating(raw.Rating),
		WrittenAt:        parseWrittenAt(raw.WrittenAt),
		Seller:           strings.TrimSpace(raw.Seller),
		PurchasedProduct: strings.TrimSpace(raw.PurchasedProduct),
		Images:           strings.TrimSpace(raw.Images),
		Survey:           strings.TrimSpace(raw.Survey),
		HelpfulCount:     parseHelpfulCount(raw.HelpfulCount),
	}
}

// parseRating parses the site's textual rating into [0, 5]. Unparsable
// input yields 0.0.
func parseRating(s string) float64 {
	rating, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.0
	}
	if rating < 0 {
		return 0.0
	}
	if rating > 5 {
		return 5.0
	}
	return rating
}

// parseHelpfulCount pulls the first run of digits out of free text like
// "48 명에게 도움 됨". No digits yields 0.
func parseHelpfulCount(s string) int {
	match := digitsPattern.FindString(s)
	if match == "" {
		return 0
	}
	count, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return count
}

// parseWrittenAt parses the fixed YYYY.MM.DD date. Anything else is nil.
func parseWrittenAt(s string) *time.Time {
	t, err := time.Parse(writtenAtLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}
