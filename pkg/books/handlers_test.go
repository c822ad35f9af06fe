package books

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/bookcase/pkg/binder"
	"github.com/shishobooks/bookcase/pkg/errcodes"
	"github.com/shishobooks/bookcase/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fakeThumbnails struct {
	thumbnails map[string]string
	err        error
	calls      []string
}

func (f *fakeThumbnails) Thumbnail(_ context.Context, googleBooksID string) (string, error) {
	f.calls = append(f.calls, googleBooksID)
	if f.err != nil {
		return "", f.err
	}
	thumb, ok := f.thumbnails[googleBooksID]
	if !ok {
		return "", errcodes.NotFound("Volume")
	}
	return thumb, nil
}

func setupTestServer(t *testing.T) (*echo.Echo, *bun.DB, *fakeThumbnails) {
	t.Helper()
	db := setupTestDB(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	thumbs := &fakeThumbnails{thumbnails: map[string]string{}}
	RegisterRoutes(e, db, thumbs)
	return e, db, thumbs
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type bookResponse struct {
	Message   string       `json:"message"`
	Thumbnail string       `json:"thumbnail"`
	Book      *models.Book `json:"book"`
}

func decodeBook(t *testing.T, rec *httptest.ResponseRecorder) bookResponse {
	t.Helper()
	resp := bookResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

const searchResult = `{
	"google_books_id": "vol-1",
	"title": "Dune",
	"authors": ["Frank Herbert"],
	"genres": ["Fiction"],
	"description": "Spice.",
	"thumbnail": "http://books.google.com/dune.jpg",
	"publisher": "Chilton",
	"publishedDate": "1965",
	"pageCount": 412,
	"isbn": "9780441013593",
	"selected": true
}`

func TestHandler_Add(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	library := createLibrary(t, db, "Shelf")

	rec := doRequest(e, http.MethodPost, "/library/1/add", searchResult)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBook(t, rec)
	assert.Equal(t, "Book 'Dune' added to library 'Shelf'!", resp.Message)
	require.NotNil(t, resp.Book)
	assert.Equal(t, library.ID, resp.Book.LibraryID)
	assert.Equal(t, "vol-1", resp.Book.GoogleBooksID)
	assert.Equal(t, models.StringList{"Frank Herbert"}, resp.Book.Authors)
	assert.Equal(t, "1965", resp.Book.PublishedDate)
	assert.Equal(t, 412, resp.Book.PageCount)

	rec = doRequest(e, http.MethodPost, "/library/1/add", searchResult)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBook(t, rec)
	assert.Equal(t, "Book already exists in the library.", resp.Message)

	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Older clients send the catalog id as book_id.
	rec = doRequest(e, http.MethodPost, "/library/1/add", `{"book_id": "vol-2", "title": "Emma"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vol-2", decodeBook(t, rec).Book.GoogleBooksID)
}

func TestHandler_Add_Errors(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	createLibrary(t, db, "Shelf")

	rec := doRequest(e, http.MethodPost, "/library/99/add", searchResult)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Library not found.", decodeError(t, rec))

	rec = doRequest(e, http.MethodPost, "/library/1/add", `{"title": "x", "pageCount": -3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `"pageCount" must be greater than or equal to 0`, decodeError(t, rec))

	rec = doRequest(e, http.MethodPost, "/library/1/add", `{"title": "x", "thumbnail": "ftp://nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/library/1/add", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_List(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	library := createLibrary(t, db, "Shelf")
	seedBooks(t, NewService(db), library.ID)
	createLibrary(t, db, "Empty")

	decodeList := func(rec *httptest.ResponseRecorder) listResponse {
		resp := listResponse{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
		return resp
	}

	rec := doRequest(e, http.MethodGet, "/library/1/books?rating=3&read=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeList(rec)
	assert.Equal(t, 2, resp.Total)
	for _, b := range resp.Books {
		assert.Equal(t, 3, b.Rating)
		assert.True(t, b.IsRead)
	}

	rec = doRequest(e, http.MethodGet, "/library/1/books?sort=alpha_asc&search=dune", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Children of Dune", "Dune"}, titles(decodeList(rec).Books))

	rec = doRequest(e, http.MethodGet, "/library/1/books?genre=Romance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Emma"}, titles(decodeList(rec).Books))

	rec = doRequest(e, http.MethodGet, "/library/1/books?search=&sort=&genre=", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decodeList(rec).Total)

	rec = doRequest(e, http.MethodGet, "/library/2/books?rating=3&read=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeList(rec)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Books)
	assert.Contains(t, rec.Body.String(), `"books":[]`)

	rec = doRequest(e, http.MethodGet, "/library/3/books", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, "/library/1/books?sort=popular", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/library/1/books?rating=six", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Delete(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	createLibrary(t, db, "Shelf")
	createLibrary(t, db, "Other")

	rec := doRequest(e, http.MethodPost, "/library/1/add", searchResult)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeBook(t, rec).Book.ID

	rec = doRequest(e, http.MethodDelete, "/library/2/books/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Book not found.", decodeError(t, rec))

	rec = doRequest(e, http.MethodDelete, "/library/1/books/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Book 'Dune' deleted from library.")

	_, err := NewService(db).RetrieveBook(context.Background(), RetrieveBookOptions{ID: &id})
	assert.Error(t, err)
}

func TestHandler_UpdateTags(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	createLibrary(t, db, "Shelf")
	rec := doRequest(e, http.MethodPost, "/library/1/add", searchResult)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name string
		body string
		want models.StringList
	}{
		{"list", `{"tags": ["classic", " sci-fi "]}`, models.StringList{"classic", "sci-fi"}},
		{"comma string", `{"tags": "desert, politics, spice"}`, models.StringList{"desert", "politics", "spice"}},
		{"bare comma inside a tag", `{"tags": "Smith,Jr, signed"}`, models.StringList{"Smith,Jr", "signed"}},
		{"clear", `{"tags": []}`, models.StringList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/book/1/tags", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decodeBook(t, rec)
			assert.Equal(t, "Tags updated successfully.", resp.Message)
			assert.Equal(t, tt.want, resp.Book.Tags)
		})
	}

	rec = doRequest(e, http.MethodPost, "/book/1/tags", `{"tags": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/book/9/tags", `{"tags": ["x"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_UpdateStatusAndRating(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	createLibrary(t, db, "Shelf")
	rec := doRequest(e, http.MethodPost, "/library/1/add", searchResult)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodPost, "/book/1/update_status", `{"is_read": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBook(t, rec).Book.IsRead)

	rec = doRequest(e, http.MethodPost, "/book/1/update_status", `{"is_read": false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeBook(t, rec).Book.IsRead)

	rec = doRequest(e, http.MethodPost, "/book/1/update_status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/book/1/update_rating", `{"rating": 4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decodeBook(t, rec).Book.Rating)

	for _, body := range []string{`{"rating": 0}`, `{"rating": 6}`, `{"rating": 2.5}`, `{"rating": "3"}`, `{}`} {
		rec = doRequest(e, http.MethodPost, "/book/1/update_rating", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	stored, err := NewService(db).RetrieveBook(context.Background(), RetrieveBookOptions{ID: pointerutil.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Rating)

	rec = doRequest(e, http.MethodPost, "/book/7/update_rating", `{"rating": 4}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RefreshImage(t *testing.T) {
	t.Parallel()
	e, db, thumbs := setupTestServer(t)
	createLibrary(t, db, "Shelf")
	rec := doRequest(e, http.MethodPost, "/library/1/add", searchResult)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(e, http.MethodPost, "/library/1/add", `{"title": "No Catalog ID"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	thumbs.thumbnails["vol-1"] = "https://books.google.com/dune-new.jpg"

	rec = doRequest(e, http.MethodPost, "/book/1/refresh_image", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBook(t, rec)
	assert.Equal(t, "https://books.google.com/dune-new.jpg", resp.Thumbnail)
	assert.Equal(t, "https://books.google.com/dune-new.jpg", resp.Book.Thumbnail)
	assert.Equal(t, []string{"vol-1"}, thumbs.calls)

	rec = doRequest(e, http.MethodPost, "/book/2/refresh_image", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/book/3/refresh_image", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	delete(thumbs.thumbnails, "vol-1")
	rec = doRequest(e, http.MethodPost, "/book/1/refresh_image", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	thumbs.err = errcodes.Upstream("Google Books API")
	rec = doRequest(e, http.MethodPost, "/book/1/refresh_image", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch data from Google Books API.", decodeError(t, rec))
}
