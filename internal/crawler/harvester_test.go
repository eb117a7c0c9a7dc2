package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coupang-review-harvester/internal/browser"
	"coupang-review-harvester/internal/ratelimit"
)

type fakeOpener struct {
	sess  *fakeSession
	err   error
	calls int
}

func (o *fakeOpener) NewSession() (browser.Session, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return o.sess, nil
}

const detailPage = `<html><body>
	<div class="twc-text-sm twc-text-blue-600">테스트브랜드</div>
	<div class="product-description"><ul>
		<li>쿠팡상품번호: 555</li>
		<li>색상: 화이트</li>
	</ul></div>
</body></html>`

func newHarvesterServer(t *testing.T, cards string, detail map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/np/search":
			if r.URL.Query().Get("page") != "1" {
				fmt.Fprint(w, "<html><body></body></html>")
				return
			}
			fmt.Fprint(w, "<html><body>", cards, "</body></html>")
		default:
			if code, ok := detail[r.URL.Path]; ok && code != http.StatusOK {
				http.Error(w, "detail unavailable", code)
				return
			}
			fmt.Fprint(w, detailPage)
		}
	}))
}

func newTestHarvester(opener *fakeOpener, baseURL string) *Harvester {
	resolver := NewResolver(baseURL, 36, "", slog.Default())
	collector := NewCollector(ratelimit.NewSettler(0, 0), slog.Default())
	return NewHarvester(opener, resolver, collector, slog.Default())
}

func TestHarvesterRunHappyPath(t *testing.T) {
	ts := newHarvesterServer(t, productCard("무선 청소기", "89,000원", "/vp/products/100"), nil)
	defer ts.Close()

	opener := &fakeOpener{sess: &fakeSession{
		tabLabel:    "상품평 (2)",
		pageButtons: 0,
		pages:       [][]*fakeNode{{reviewItem("좋아요", "만족"), reviewItem("괜찮아요", "무난")}},
	}}

	h := newTestHarvester(opener, ts.URL)
	reviews, err := h.Run(context.Background(), "청소기", 1)

	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 1, opener.calls)
	assert.True(t, opener.sess.closed)

	// Detail metadata is folded into every review's product context.
	assert.Equal(t, "무선 청소기", reviews[0].Product.Name)
	assert.Equal(t, "테스트브랜드", reviews[0].Product.Brand)
	assert.Equal(t, "555", reviews[0].Product.ProductID)
	assert.Equal(t, "색상: 화이트", reviews[0].Product.Option)
	assert.Equal(t, "89,000원", reviews[0].Product.Price)
}

func TestHarvesterRunNoProducts(t *testing.T) {
	ts := newHarvesterServer(t, "", nil)
	defer ts.Close()

	opener := &fakeOpener{}
	h := newTestHarvester(opener, ts.URL)

	reviews, err := h.Run(context.Background(), "zzzz", 1)

	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Zero(t, opener.calls, "no session should be opened when there is nothing to crawl")
}

func TestHarvesterRunSessionFailure(t *testing.T) {
	ts := newHarvesterServer(t, productCard("무선 청소기", "89,000원", "/vp/products/100"), nil)
	defer ts.Close()

	opener := &fakeOpener{err: errors.New("browser endpoint unreachable")}
	h := newTestHarvester(opener, ts.URL)

	_, err := h.Run(context.Background(), "청소기", 1)
	assert.ErrorContains(t, err, "failed to open browser session")
}

func TestHarvesterRunSkipsDetailFailure(t *testing.T) {
	cards := productCard("상품 A", "1,000원", "/vp/products/1") +
		productCard("상품 B", "2,000원", "/vp/products/2")
	ts := newHarvesterServer(t, cards, map[string]int{"/vp/products/1": http.StatusServiceUnavailable})
	defer ts.Close()

	opener := &fakeOpener{sess: &fakeSession{
		tabLabel:    "상품평 (1)",
		pageButtons: 0,
		pages:       [][]*fakeNode{{reviewItem("리뷰", "본문")}},
	}}

	h := newTestHarvester(opener, ts.URL)
	reviews, err := h.Run(context.Background(), "상품", 1)

	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "상품 B", reviews[0].Product.Name)
}
