package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productCard(name, price, href string) string {
	card := `<div class="ProductUnit_productUnit__Qd6sv">`
	if href != "" {
		card += fmt.Sprintf(`<a href="%s">`, href)
	}
	if name != "" {
		card += fmt.Sprintf(`<div class="ProductUnit_productName__gre7e">%s</div>`, name)
	}
	if price != "" {
		card += fmt.Sprintf(`<strong class="Price_priceValue__A4KOr">%s</strong>`, price)
	}
	if href != "" {
		card += `</a>`
	}
	return card + `</div>`
}

func TestSearchSkipsFailedPagesAndStopsOnEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, "<html><body>",
				productCard("무선 청소기", "89,000원", "/vp/products/100"),
				productCard("", "10,000원", "/vp/products/101"), // no name: skipped
				productCard("가습기", "", "/vp/products/102"),    // no price: skipped
				productCard("공기청정기", "129,000원", ""),          // no link: skipped
				"</body></html>")
		case "2":
			http.Error(w, "blocked", http.StatusForbidden)
		case "3":
			fmt.Fprint(w, "<html><body>",
				productCard("로봇 청소기", "450,000원", "/vp/products/103"),
				"</body></html>")
		default:
			// Page 4 has zero cards: search must stop here.
			fmt.Fprint(w, "<html><body></body></html>")
		}
	}))
	defer ts.Close()

	resolver := NewResolver(ts.URL, 36, "", slog.Default())
	products := resolver.Search(context.Background(), "청소기", 10)

	require.Len(t, products, 2)
	assert.Equal(t, "무선 청소기", products[0].Name)
	assert.Equal(t, "89,000원", products[0].Price)
	assert.Equal(t, ts.URL+"/vp/products/100", products[0].Link)
	assert.Equal(t, "로봇 청소기", products[1].Name)
}

func TestSearchEmptyFirstPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>검색 결과가 없습니다</p></body></html>")
	}))
	defer ts.Close()

	resolver := NewResolver(ts.URL, 36, "", slog.Default())
	products := resolver.Search(context.Background(), "zzzz", 3)

	assert.Empty(t, products)
}

func TestDetailParsesSpecList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="twc-text-sm twc-text-blue-600">삼성전자</div>
			<div class="product-description">
				<ul>
					<li>쿠팡상품번호: 7712345678</li>
					<li>색상: 블랙</li>
					<li>용량: 2L</li>
					<li>무상보증</li>
				</ul>
			</div>
		</body></html>`)
	}))
	defer ts.Close()

	resolver := NewResolver(ts.URL, 36, "", slog.Default())
	brand, productID, option, err := resolver.Detail(context.Background(), ts.URL+"/vp/products/100")

	require.NoError(t, err)
	assert.Equal(t, "삼성전자", brand)
	assert.Equal(t, "7712345678", productID)
	assert.Equal(t, "색상: 블랙; 용량: 2L; 무상보증", option)
}

func TestDetailDefaults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><h1>상품</h1></body></html>")
	}))
	defer ts.Close()

	resolver := NewResolver(ts.URL, 36, "", slog.Default())
	brand, productID, option, err := resolver.Detail(context.Background(), ts.URL+"/vp/products/100")

	require.NoError(t, err)
	assert.Equal(t, brandUnknown, brand)
	assert.Equal(t, productIDUnknown, productID)
	assert.Empty(t, option)
}

func TestDetailFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer ts.Close()

	resolver := NewResolver(ts.URL, 36, "", slog.Default())
	_, _, _, err := resolver.Detail(context.Background(), ts.URL+"/vp/products/100")

	assert.Error(t, err)
}
