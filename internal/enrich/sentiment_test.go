package enrich

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coupang-review-harvester/internal/config"
)

func testConfig(endpoint string) config.SentimentConfig {
	return config.SentimentConfig{
		Endpoint:       endpoint,
		Timeout:        5 * time.Second,
		PositiveLabels: []string{"positive", "LABEL_1", "5 stars"},
		NegativeLabels: []string{"negative", "LABEL_0"},
	}
}

func TestAnalyzeMapsResultsInOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Texts, 3)

		// Second entry is null: the service could not score that text.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"label":"LABEL_1","score":0.98},null,{"label":"LABEL_0","score":0.91}]`))
	}))
	defer ts.Close()

	a := NewAnalyzer(testConfig(ts.URL), slog.Default())
	got, err := a.Analyze(context.Background(), []string{"좋아요", "", "별로예요"})

	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotNil(t, got[0])
	assert.Equal(t, LabelPositive, got[0].Label)
	assert.Equal(t, 0.98, got[0].Score)
	assert.Nil(t, got[1])
	require.NotNil(t, got[2])
	assert.Equal(t, LabelNegative, got[2].Label)
}

func TestAnalyzeLengthMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"label":"positive","score":0.5}]`))
	}))
	defer ts.Close()

	a := NewAnalyzer(testConfig(ts.URL), slog.Default())
	_, err := a.Analyze(context.Background(), []string{"one", "two"})

	assert.ErrorContains(t, err, "returned 1 results for 2 texts")
}

func TestAnalyzeServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	a := NewAnalyzer(testConfig(ts.URL), slog.Default())
	_, err := a.Analyze(context.Background(), []string{"text"})

	assert.ErrorContains(t, err, "sentiment service returned")
}

func TestAnalyzeWithoutEndpoint(t *testing.T) {
	a := NewAnalyzer(testConfig(""), slog.Default())
	assert.False(t, a.Available())

	got, err := a.Analyze(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0])
	assert.Nil(t, got[1])
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer(testConfig("http://unused.invalid"), slog.Default())

	got, err := a.Analyze(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMapLabel(t *testing.T) {
	a := NewAnalyzer(testConfig(""), slog.Default())

	tests := []struct {
		in   string
		want string
	}{
		{"LABEL_1", LabelPositive},
		{"label_1", LabelPositive},
		{"5 stars", LabelPositive},
		{"Very Positive", LabelPositive},
		{"LABEL_0", LabelNegative},
		{"negative", LabelNegative},
		{"LABEL_2", LabelNeutral},
		{"", LabelNeutral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, a.MapLabel(tt.in), "label %q", tt.in)
	}
}
