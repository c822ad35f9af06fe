package binder

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows json and form bodies", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}

type uploadParams struct {
	FormFiles map[string]*multipart.FileHeader `form:"-" json:"-"`
}

func TestBind_MultipartFiles(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Library Name\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	c := newContext(body.String(), mw.FormDataContentType())
	p := uploadParams{}
	require.NoError(t, b.Bind(&p, c))
	require.Contains(t, p.FormFiles, "file")
	assert.Equal(t, "export.csv", p.FormFiles["file"].Filename)
}

type sortParams struct {
	Sort      string `query:"sort" json:"sort" default:"date_desc" validate:"sortorder"`
	Thumbnail string `query:"thumbnail" json:"thumbnail" validate:"url"`
}

func TestBind_QueryDefaultsAndCustomValidators(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	p := sortParams{}
	require.NoError(t, b.Bind(&p, c))
	assert.Equal(t, "date_desc", p.Sort)

	req = httptest.NewRequest(http.MethodGet, "/?sort=date_asc&_=1700000000", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	p = sortParams{}
	require.NoError(t, b.Bind(&p, c))
	assert.Equal(t, "date_asc", p.Sort)

	req = httptest.NewRequest(http.MethodGet, "/?sort=random", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	p = sortParams{}
	err = b.Bind(&p, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"sort" must be one of the following`)

	req = httptest.NewRequest(http.MethodGet, "/?thumbnail=ftp://example.com/a.png", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	p = sortParams{}
	err = b.Bind(&p, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"thumbnail" must be an http or https URL`)
}
