package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/model"
)

func TestFetchBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sspai", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{
			"code": 200,
			"data": [
				{"title": "新款键盘体验", "url": "https://sspai.com/post/1", "hot": 12345, "timestamp": 1743232936000, "desc": "一篇测评"},
				{"title": "移动端条目", "url": "", "mobileUrl": "https://m.sspai.com/post/2", "hot": "8.8万", "timestamp": ""},
				{"title": "没有链接被丢弃", "url": ""}
			]
		}`))
	}))
	defer srv.Close()

	h := NewHotspot(srv.URL, map[string]string{"sspai": "少数派"}, zap.NewNop())
	articles, err := h.FetchBoard(context.Background(), "sspai", 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "少数派", articles[0].Source)
	assert.Equal(t, model.FlexString("12345"), articles[0].Hot)
	assert.False(t, articles[0].Timestamp.IsZero())

	assert.Equal(t, "https://m.sspai.com/post/2", articles[1].URL, "mobileUrl stands in for a missing url")
	assert.Equal(t, model.FlexString("8.8万"), articles[1].Hot)
	assert.True(t, articles[1].Timestamp.IsZero())
}

func TestFetchBoardEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 500, "message": "upstream down"}`))
	}))
	defer srv.Close()

	h := NewHotspot(srv.URL, nil, zap.NewNop())
	_, err := h.FetchBoard(context.Background(), "sspai", 0)
	assert.ErrorContains(t, err, "upstream down")
}

func TestFetchBoardHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHotspot(srv.URL, nil, zap.NewNop())
	_, err := h.FetchBoard(context.Background(), "sspai", 0)
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte(`{"code": 200, "data": []}`))
	}))
	defer srv.Close()

	h := NewHotspot(srv.URL, nil, zap.NewNop())
	require.NoError(t, h.HealthCheck(context.Background()))
	assert.Equal(t, "/sspai?limit=5", gotPath)
}
