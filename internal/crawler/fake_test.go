package crawler

import (
	"fmt"
	"regexp"
	"strconv"

	"coupang-review-harvester/internal/browser"
)

// fakeNode is a scripted DOM node for extractor and collector tests.
type fakeNode struct {
	text     string
	textErr  error
	attrs    map[string]string
	children map[string][]*fakeNode
	clickErr error
	onClick  func()
}

func (n *fakeNode) Text() (string, error) {
	if n.textErr != nil {
		return "", n.textErr
	}
	return n.text, nil
}

func (n *fakeNode) Attr(name string) (string, error) {
	value, ok := n.attrs[name]
	if !ok {
		return "", fmt.Errorf("attribute %s not present", name)
	}
	return value, nil
}

func (n *fakeNode) FindOne(selector string) (browser.Node, error) {
	nodes := n.children[selector]
	if len(nodes) == 0 {
		return nil, browser.ErrNotFound
	}
	return nodes[0], nil
}

func (n *fakeNode) FindAll(selector string) ([]browser.Node, error) {
	nodes := n.children[selector]
	out := make([]browser.Node, 0, len(nodes))
	for _, c := range nodes {
		out = append(out, c)
	}
	return out, nil
}

func (n *fakeNode) Click() error {
	if n.clickErr != nil {
		return n.clickErr
	}
	if n.onClick != nil {
		n.onClick()
	}
	return nil
}

func (n *fakeNode) ClickScript() error {
	return n.Click()
}

var pageButtonPattern = regexp.MustCompile(`\[data-page="(\d+)"\]`)

// fakeSession simulates one product page with a paginated review
// section. Clicking a page button switches the visible item list.
type fakeSession struct {
	navErr       error
	tabLabel     string // "" means the reviews tab is absent
	tabClickErr  error
	noReviewText string
	pageButtons  int
	pages        [][]*fakeNode // review items per page
	brokenAfter  int           // pages beyond this have no findable button
	current      int
	closed       bool
}

func (s *fakeSession) Navigate(url string) error {
	if s.navErr != nil {
		return s.navErr
	}
	s.current = 1
	return nil
}

func (s *fakeSession) FindOne(selector string) (browser.Node, error) {
	switch {
	case selector == reviewTabSelector:
		if s.tabLabel == "" {
			return nil, browser.ErrNotFound
		}
		return &fakeNode{text: s.tabLabel, clickErr: s.tabClickErr}, nil

	case selector == noReviewSelector:
		if s.noReviewText == "" {
			return nil, browser.ErrNotFound
		}
		return &fakeNode{text: s.noReviewText}, nil

	default:
		match := pageButtonPattern.FindStringSubmatch(selector)
		if match == nil {
			return nil, browser.ErrNotFound
		}
		page, _ := strconv.Atoi(match[1])
		if s.brokenAfter > 0 && page > s.brokenAfter {
			return nil, browser.ErrNotFound
		}
		return &fakeNode{onClick: func() { s.current = page }}, nil
	}
}

func (s *fakeSession) FindAll(selector string) ([]browser.Node, error) {
	switch selector {
	case pageButtonSelector:
		nodes := make([]browser.Node, 0, s.pageButtons)
		for i := 0; i < s.pageButtons; i++ {
			nodes = append(nodes, &fakeNode{})
		}
		return nodes, nil

	case reviewItemSelector:
		if s.current < 1 || s.current > len(s.pages) {
			return nil, nil
		}
		items := s.pages[s.current-1]
		nodes := make([]browser.Node, 0, len(items))
		for _, item := range items {
			nodes = append(nodes, item)
		}
		return nodes, nil
	}
	return nil, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// reviewItem builds a fully populated fake review block.
func reviewItem(title, content string) *fakeNode {
	return &fakeNode{
		children: map[string][]*fakeNode{
			fieldTitle.Selector:     {{text: title}},
			fieldContent.Selector:   {{text: content}},
			fieldAuthor.Selector:    {{text: "김**"}},
			fieldRating.Selector:    {{attrs: map[string]string{"data-rating": "5"}}},
			fieldWrittenAt.Selector: {{text: "2023.11.05"}},
			fieldSeller.Selector:    {{text: "쿠팡"}},
			fieldPurchased.Selector: {{text: "옵션 A"}},
			fieldHelpful.Selector:   {{text: "48 명에게 도움 됨"}},
		},
	}
}
