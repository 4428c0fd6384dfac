package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteErrorResponse(rr, req, "service not found", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "service not found", body.Error)
}

func TestPathParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		rawPath string
		want    string
		wantErr string
	}{
		{name: "uuid", path: "/services/3f2a1c9e-8a51-4f3b-9a7e-6a9d1f0c2b44", want: "3f2a1c9e-8a51-4f3b-9a7e-6a9d1f0c2b44"},
		{name: "encoded", path: "/services/a-b", rawPath: "/services/a%2Db", want: "a-b"},
		{name: "space", path: "/services/a b", wantErr: "cannot contain whitespace"},
		{name: "only whitespace", path: "/services/ ", wantErr: "cannot be empty"},
		{name: "bad escape", path: "/services/%zz", rawPath: "/services/%zz", wantErr: "invalid URL encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			var gotErr error
			r := chi.NewRouter()
			r.Get("/services/{id}", func(_ http.ResponseWriter, req *http.Request) {
				got, gotErr = PathParam(req, "id")
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL = &url.URL{Path: tt.path, RawPath: tt.rawPath}
			r.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr != "" {
				require.ErrorContains(t, gotErr, tt.wantErr)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}
}
