package crawler

import (
	"strings"

	"coupang-review-harvester/internal/browser"
	"coupang-review-harvester/internal/models"
)

// FieldKind selects how a field is pulled out of a review block.
type FieldKind int

const (
	// FieldText takes the trimmed text of the first matching node.
	FieldText FieldKind = iota
	// FieldAttr takes a named attribute of the first matching node.
	FieldAttr
	// FieldJoinAttr collects an attribute from every matching node and
	// joins the values with "; ".
	FieldJoinAttr
	// FieldSurvey collects "question: answer" pairs from every matching
	// row and joins them with "; ".
	FieldSurvey
)

// FieldSpec describes one extractable attribute of a review block. Specs
// are evaluated uniformly by ExtractField with a single fallback rule:
// any lookup failure yields "" for that field and nothing else.
type FieldSpec struct {
	Selector    string
	Attr        string
	Kind        FieldKind
	QuestionSel string
	AnswerSel   string
}

const joinSep = "; "

// The review DOM is not contractually stable. Each field is located
// independently so an injected ad block or A/B variant drops at most the
// fields it displaced, never the whole review.
var (
	fieldTitle     = FieldSpec{Selector: ".sdp-review__article__list__headline", Kind: FieldText}
	fieldContent   = FieldSpec{Selector: ".sdp-review__article__list__review__content.js_reviewArticleContent", Kind: FieldText}
	fieldAuthor    = FieldSpec{Selector: ".sdp-review__article__list__info__user__name", Kind: FieldText}
	fieldRating    = FieldSpec{Selector: ".sdp-review__article__list__info__product-info__star-orange", Kind: FieldAttr, Attr: "data-rating"}
	fieldWrittenAt = FieldSpec{Selector: ".sdp-review__article__list__info__product-info__reg-date", Kind: FieldText}
	fieldSeller    = FieldSpec{Selector: ".sdp-review__article__list__info__product-info__seller_name", Kind: FieldText}
	fieldPurchased = FieldSpec{Selector: ".sdp-review__article__list__info__product-info__name", Kind: FieldText}
	fieldImages    = FieldSpec{Selector: ".sdp-review__article__list__attachment__img", Kind: FieldJoinAttr, Attr: "data-origin-path"}
	fieldHelpful   = FieldSpec{Selector: ".sdp-review__article__list__help__count", Kind: FieldText}
	fieldSurvey    = FieldSpec{
		Selector:    ".sdp-review__article__list__survey__row",
		Kind:        FieldSurvey,
		QuestionSel: ".sdp-review__article__list__survey__row__question",
		AnswerSel:   ".sdp-review__article__list__survey__row__answer",
	}
)

// ExtractField evaluates one spec against a review block. It never
// returns an error: missing nodes and missing attributes degrade to "".
func ExtractField(node browser.Node, spec FieldSpec) string {
	switch spec.Kind {
	case FieldAttr:
		child, err := node.FindOne(spec.Selector)
		if err != nil {
			return ""
		}
		value, err := child.Attr(spec.Attr)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(value)

	case FieldJoinAttr:
		children, err := node.FindAll(spec.Selector)
		if err != nil {
			return ""
		}
		values := make([]string, 0, len(children))
		for _, child := range children {
			value, err := child.Attr(spec.Attr)
			if err != nil || strings.TrimSpace(value) == "" {
				continue
			}
			values = append(values, strings.TrimSpace(value))
		}
		return strings.Join(values, joinSep)

	case FieldSurvey:
		rows, err := node.FindAll(spec.Selector)
		if err != nil {
			return ""
		}
		pairs := make([]string, 0, len(rows))
		for _, row := range rows {
			question := textOrEmpty(row, spec.QuestionSel)
			answer := textOrEmpty(row, spec.AnswerSel)
			if question == "" && answer == "" {
				continue
			}
			pairs = append(pairs, question+": "+answer)
		}
		return strings.Join(pairs, joinSep)

	default:
		child, err := node.FindOne(spec.Selector)
		if err != nil {
			return ""
		}
		text, err := child.Text()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}
}

// ExtractReview builds one RawReview from a review block. Per-field
// failures never abort the record.
func ExtractReview(node browser.Node, page int, product models.ProductContext) models.RawReview {
	return models.RawReview{
		Product:          product,
		Page:             page,
		Title:            ExtractField(node, fieldTitle),
		Content:          ExtractField(node, fieldContent),
		Author:           ExtractField(node, fieldAuthor),
		Rating:           ExtractField(node, fieldRating),
		WrittenAt:        ExtractField(node, fieldWrittenAt),
		Seller:           ExtractField(node, fieldSeller),
		PurchasedProduct: ExtractField(node, fieldPurchased),
		Images:           ExtractField(node, fieldImages),
		Survey:           ExtractField(node, fieldSurvey),
		HelpfulCount:     ExtractField(node, fieldHelpful),
	}
}

func textOrEmpty(node browser.Node, selector string) string {
	child, err := node.FindOne(selector)
	if err != nil {
		return ""
	}
	text, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
