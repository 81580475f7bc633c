package ubox

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIStub(t *testing.T, handler http.Handler) *APIClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	api, err := NewAPIClient(APIClientArgs{
		H:           srv.Client(),
		AccessToken: "A",
		APIBase:     srv.URL + "/2.0",
		UploadBase:  srv.URL + "/upload/2.0",
	})
	require.NoError(t, err)

	return api
}

func TestNewAPIClientRequiresToken(t *testing.T) {
	_, err := NewAPIClient(APIClientArgs{})
	assert.ErrorContains(t, err, "access token")
}

func TestDefaultHTTPTimeouts(t *testing.T) {
	assert := assert.New(t)

	api, err := NewAPIClient(APIClientArgs{AccessToken: "A"})
	require.NoError(t, err)
	assert.Equal(DefaultHTTPTimeout, api.h.Timeout)

	c, err := NewClient(ClientArgs{ClientId: "c", ClientSecret: "s"})
	require.NoError(t, err)
	assert.Equal(DefaultHTTPTimeout, c.HTTPClient().Timeout)
}

func TestListFolder(t *testing.T) {
	assert := assert.New(t)

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("GET", r.Method)
		assert.Equal("/2.0/folders/0", r.URL.Path)
		w.Write([]byte(`{"item_collection":{"entries":[{"id":"1","name":"x"}]}}`))
	}))

	entries, err := api.ListFolder(ctx, "0")
	require.NoError(t, err)
	assert.Equal([]Entry{{ID: "1", Name: "x"}}, entries)
}

func TestListFolderEmpty(t *testing.T) {
	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"5","item_collection":{"total_count":0,"entries":[]}}`))
	}))

	entries, err := api.ListFolder(ctx, "5")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListFolderMissingCollection(t *testing.T) {
	assert := assert.New(t)

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"0","name":"All Files"}`))
	}))

	_, err := api.ListFolder(ctx, "0")
	assert.ErrorIs(err, ErrDecode)
	assert.NotErrorIs(err, ErrAPIFailed)
}

func TestCreateFolder(t *testing.T) {
	assert := assert.New(t)

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("POST", r.Method)
		assert.Equal("/2.0/folders", r.URL.Path)
		assert.Equal("application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(json.NewDecoder(r.Body).Decode(&body))
		assert.Equal("test", body["name"])
		assert.Equal(map[string]any{"id": "0"}, body["parent"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"type":"folder","id":"42","name":"test"}`))
	}))

	id, err := api.CreateFolder(ctx, "0", "test")
	require.NoError(t, err)
	assert.Equal("42", id)
}

func TestRemoveFolderIsRecursive(t *testing.T) {
	assert := assert.New(t)

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("DELETE", r.Method)
		assert.Equal("/2.0/folders/42", r.URL.Path)
		assert.Equal("true", r.URL.Query().Get("recursive"))
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(api.RemoveFolder(ctx, "42"))
}

func TestUploadFile(t *testing.T) {
	assert := assert.New(t)

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("POST", r.Method)
		assert.Equal("/upload/2.0/files/content", r.URL.Path)
		if !assert.NoError(r.ParseMultipartForm(1 << 20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var attrs itemAttributes
		assert.NoError(json.Unmarshal([]byte(r.FormValue("attributes")), &attrs))
		assert.Equal("test.png", attrs.Name)
		assert.Equal("0", attrs.Parent.ID)

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal("test.png", hdr.Filename)
		assert.Equal("png bytes", string(b))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"total_count":1,"entries":[{"type":"file","id":"77","name":"test.png"}]}`))
	}))

	id, err := api.UploadFile(ctx, "0", "test.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Equal("77", id)
}

func TestUploadFileEmptyEntries(t *testing.T) {
	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_count":0,"entries":[]}`))
	}))

	_, err := api.UploadFile(ctx, "0", "a.txt", strings.NewReader("a"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDownloadAndDeleteFile(t *testing.T) {
	assert := assert.New(t)

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/2.0/files/77/content":
			w.Write([]byte{0x89, 'P', 'N', 'G'})
		case r.Method == "DELETE" && r.URL.Path == "/2.0/files/77":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))

	b, err := api.DownloadFile(ctx, "77")
	require.NoError(t, err)
	assert.Equal([]byte{0x89, 'P', 'N', 'G'}, b)

	assert.NoError(api.DeleteFile(ctx, "77"))
}

func TestOperationsPropagateNotFound(t *testing.T) {
	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","status":404,"code":"not_found","message":"Not Found"}`))
	}))

	calls := map[string]func() error{
		"list folder": func() error {
			_, err := api.ListFolder(ctx, "404")
			return err
		},
		"create folder": func() error {
			_, err := api.CreateFolder(ctx, "404", "x")
			return err
		},
		"remove folder": func() error {
			return api.RemoveFolder(ctx, "404")
		},
		"upload file": func() error {
			_, err := api.UploadFile(ctx, "404", "x", strings.NewReader("x"))
			return err
		},
		"download file": func() error {
			_, err := api.DownloadFile(ctx, "404")
			return err
		},
		"delete file": func() error {
			return api.DeleteFile(ctx, "404")
		},
	}

	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			assert := assert.New(t)

			err := call()
			assert.ErrorIs(err, ErrAPIFailed)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(op, apiErr.Op)
			assert.Equal("404", apiErr.Target)
			assert.Equal(http.StatusNotFound, apiErr.StatusCode)
			assert.Contains(err.Error(), op)
			assert.Contains(err.Error(), "Not Found (not_found)")
		})
	}
}

func TestMetadata(t *testing.T) {
	assert := assert.New(t)

	var mu sync.Mutex
	var template MetadataTemplate
	var values map[string]string

	api := newAPIStub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == "POST" && r.URL.Path == "/2.0/metadata_templates/schema":
			assert.NoError(json.NewDecoder(r.Body).Decode(&template))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		case r.Method == "POST" && r.URL.Path == "/2.0/files/77/metadata/enterprise/visus":
			assert.NoError(json.NewDecoder(r.Body).Decode(&values))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		case r.Method == "GET" && r.URL.Path == "/2.0/files/77/metadata/enterprise/visus":
			w.Write([]byte(`{"field1":"0","$template":"visus"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	require.NoError(t, api.CreateMetadataTemplate(ctx, "visus", []string{"field1", "field2"}))
	mu.Lock()
	assert.Equal("enterprise", template.Scope)
	assert.Equal("visus", template.TemplateKey)
	require.Len(t, template.Fields, 2)
	assert.Equal(MetadataTemplateField{Key: "field2", Type: "string", DisplayName: "field2"}, template.Fields[1])
	mu.Unlock()

	require.NoError(t, api.SetMetadata(ctx, "77", "visus", map[string]string{"field1": "0"}))
	mu.Lock()
	assert.Equal(map[string]string{"field1": "0"}, values)
	mu.Unlock()

	got, err := api.GetMetadata(ctx, "77", "visus")
	require.NoError(t, err)
	assert.Equal("0", got["field1"])
}
