package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/booklist/internal/api"
	"github.com/justyntemme/booklist/internal/auth"
	"github.com/justyntemme/booklist/internal/display"
	"github.com/justyntemme/booklist/internal/models"
	"github.com/justyntemme/booklist/internal/search"
)

// MockSource is a mock implementation of search.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Search(ctx context.Context, term string, mode models.SearchMode) ([]models.BookRecord, error) {
	args := m.Called(ctx, term, mode)
	books, _ := args.Get(0).([]models.BookRecord)
	return books, args.Error(1)
}

// MockHistory is a mock implementation of api.HistoryStore
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) ListHistory(userID string, limit int) ([]models.HistoryEntry, error) {
	args := m.Called(userID, limit)
	return args.Get(0).([]models.HistoryEntry), args.Error(1)
}

func (m *MockHistory) ClearHistory(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

// gatedSource blocks "first" until its context is canceled
type gatedSource struct {
	started chan string
}

func (g *gatedSource) Search(ctx context.Context, term string, mode models.SearchMode) ([]models.BookRecord, error) {
	g.started <- term
	if term == "first" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return sampleBooks, nil
}

var sampleBooks = []models.BookRecord{
	{
		ID:            "abc",
		Title:         "The Hobbit",
		Authors:       "J.R.R. Tolkien",
		PublishedDate: "1937",
		ThumbnailURL:  "http://covers/hobbit.jpg",
		PreviewURL:    "https://books.google.com/books?id=abc",
	},
	{
		ID:            "def",
		Title:         "The Silmarillion",
		Authors:       "J.R.R. Tolkien, Christopher Tolkien",
		PublishedDate: models.NoPublishDate,
		ThumbnailURL:  models.NoCover,
		PreviewURL:    models.DefaultPreviewURL,
	},
}

const testSecret = "test-secret"

func newRouter(source search.Source, conn search.Connectivity, history api.HistoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	sessions := search.NewSessions(func(userID string) *search.Searcher {
		return search.NewSearcher(source, search.Options{Connectivity: conn, UserID: userID}, zerolog.Nop())
	})
	h := api.NewHandler(sessions, history, zerolog.Nop())

	r := gin.New()
	h.Routes(r, auth.NewTokens(testSecret, 0))
	return r
}

func doRequest(r *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

type searchResponse struct {
	ID           string              `json:"id"`
	Mode         string              `json:"mode"`
	Count        int                 `json:"count"`
	EmptyMessage string              `json:"empty_message"`
	Books        []models.BookRecord `json:"books"`
	Items        []struct {
		Title    string `json:"title"`
		CoverURL string `json:"cover_url"`
		HasCover bool   `json:"has_cover"`
	} `json:"items"`
}

func TestSearchHandler(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, "lord rings", models.Author).Return(sampleBooks, nil)
	r := newRouter(source, nil, new(MockHistory))

	w := doRequest(r, http.MethodGet, "/api/search?q=lord+rings&mode=author", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "author", resp.Mode)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "", resp.EmptyMessage)
	assert.Equal(t, sampleBooks, resp.Books)
	require.Len(t, resp.Items, 2)
	assert.True(t, resp.Items[0].HasCover)
	assert.Equal(t, "http://covers/hobbit.jpg", resp.Items[0].CoverURL)
	assert.False(t, resp.Items[1].HasCover)
	source.AssertExpectations(t)
}

func TestSearchHandlerDefaultsToTitle(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, "dune", models.Title).Return([]models.BookRecord{}, nil)
	r := newRouter(source, nil, new(MockHistory))

	w := doRequest(r, http.MethodGet, "/api/search?q=dune", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, "No books found.", resp.EmptyMessage)
	assert.NotNil(t, resp.Books)
}

func TestSearchHandlerInvalidMode(t *testing.T) {
	source := new(MockSource)
	r := newRouter(source, nil, new(MockHistory))

	w := doRequest(r, http.MethodGet, "/api/search?q=dune&mode=isbn", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	source.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchHandlerOffline(t *testing.T) {
	source := new(MockSource)
	r := newRouter(source, search.Always(false), new(MockHistory))

	w := doRequest(r, http.MethodGet, "/api/search?q=dune", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No internet connection.", resp.EmptyMessage)
	source.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchHandlerSupersededInSession(t *testing.T) {
	source := &gatedSource{started: make(chan string, 2)}
	r := newRouter(source, nil, new(MockHistory))
	headers := map[string]string{api.SessionHeader: "tab-1"}

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		firstDone <- doRequest(r, http.MethodGet, "/api/search?q=first", headers)
	}()
	assert.Equal(t, "first", <-source.started)

	second := doRequest(r, http.MethodGet, "/api/search?q=second", headers)
	first := <-firstDone

	assert.Equal(t, http.StatusConflict, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestHistoryRequiresToken(t *testing.T) {
	history := new(MockHistory)
	r := newRouter(new(MockSource), nil, history)

	w := doRequest(r, http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/history", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	history.AssertNotCalled(t, "ListHistory", mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "ClearHistory", mock.Anything)
}

func TestListHistory(t *testing.T) {
	token, err := auth.NewTokens(testSecret, 0).GenerateToken("user-1")
	require.NoError(t, err)

	history := new(MockHistory)
	history.On("ListHistory", "user-1", 5).Return([]models.HistoryEntry{
		{ID: "h1", UserID: "user-1", Term: "dune", Mode: "title", ResultCount: 10, Outcome: models.OutcomeOK},
	}, nil)
	r := newRouter(new(MockSource), nil, history)

	w := doRequest(r, http.MethodGet, "/api/history?limit=5", map[string]string{"Authorization": "Bearer " + token})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"term":"dune"`)
	assert.Contains(t, w.Body.String(), `"count":1`)
	history.AssertExpectations(t)
}

func TestListHistoryBadLimit(t *testing.T) {
	token, err := auth.NewTokens(testSecret, 0).GenerateToken("user-1")
	require.NoError(t, err)
	r := newRouter(new(MockSource), nil, new(MockHistory))

	w := doRequest(r, http.MethodGet, "/api/history?limit=many", map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHistoryStoreError(t *testing.T) {
	token, err := auth.NewTokens(testSecret, 0).GenerateToken("user-1")
	require.NoError(t, err)

	history := new(MockHistory)
	history.On("ListHistory", "user-1", 0).Return([]models.HistoryEntry(nil), errors.New("disk full"))
	r := newRouter(new(MockSource), nil, history)

	w := doRequest(r, http.MethodGet, "/api/history", map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestClearHistory(t *testing.T) {
	token, err := auth.NewTokens(testSecret, 0).GenerateToken("user-1")
	require.NoError(t, err)

	history := new(MockHistory)
	history.On("ClearHistory", "user-1").Return(int64(3), nil)
	r := newRouter(new(MockSource), nil, history)

	w := doRequest(r, http.MethodDelete, "/api/history", map[string]string{"Authorization": "Bearer " + token})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":3`)
	history.AssertExpectations(t)
}

func TestHealthAndInfo(t *testing.T) {
	r := newRouter(new(MockSource), nil, new(MockHistory))

	w := doRequest(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = doRequest(r, http.MethodGet, "/api", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/search")
}

func TestPlaceholderCoverIsServed(t *testing.T) {
	source := new(MockSource)
	source.On("Search", mock.Anything, "silmarillion", models.Title).Return(sampleBooks[1:], nil)
	r := newRouter(source, nil, new(MockHistory))

	w := doRequest(r, http.MethodGet, "/api/search?q=silmarillion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.False(t, resp.Items[0].HasCover)

	w = doRequest(r, http.MethodGet, resp.Items[0].CoverURL, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	expected, err := display.Assets.ReadFile(display.PlaceholderFile)
	require.NoError(t, err)
	assert.Equal(t, expected, w.Body.Bytes())
}
