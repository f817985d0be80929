package shortio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadimbarashkov/shorty/internal/entity"
)

const testCredential = "sk_test"

func setupClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)

	return c
}

func TestNew(t *testing.T) {
	t.Run("empty base url", func(t *testing.T) {
		c, err := New("")

		assert.Error(t, err)
		assert.Nil(t, c)
	})

	t.Run("timeout", func(t *testing.T) {
		hc := &http.Client{}
		c, err := New(DefaultBaseURL, WithHTTPClient(hc), WithTimeout(3*time.Second))

		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
		assert.Zero(t, hc.Timeout)
	})
}

func TestClient_Headers(t *testing.T) {
	t.Run("without body", func(t *testing.T) {
		c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, testCredential, r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			assert.Empty(t, r.Header.Get("Content-Type"))

			w.Write([]byte(`[]`))
		})

		_, err := c.ListDomains(context.Background(), testCredential)

		assert.NoError(t, err)
	})

	t.Run("with body", func(t *testing.T) {
		c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, testCredential, r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			w.Write([]byte(`{"idString":"abc123"}`))
		})

		_, err := c.CreateLink(context.Background(), testCredential, entity.LinkCreateOptions{
			OriginalURL: "https://example.com",
			Domain:      "ex.am",
		})

		assert.NoError(t, err)
	})
}

func TestClient_ListDomains(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, DomainsPath, r.URL.Path)

		w.Write([]byte(`[{"id":1,"hostname":"ex.am","TeamId":null}]`))
	})

	domains, err := c.ListDomains(context.Background(), testCredential)

	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, int64(1), domains[0].ID)
	assert.Equal(t, "ex.am", domains[0].Hostname)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantRemote  bool
		wantPayload string
	}{
		{
			name:        "error field with ok status",
			status:      http.StatusOK,
			body:        `{"error":"Unauthorized"}`,
			wantRemote:  true,
			wantPayload: `"Unauthorized"`,
		},
		{
			name:        "error object",
			status:      http.StatusBadRequest,
			body:        `{"error":{"message":"bad domain"}}`,
			wantRemote:  true,
			wantPayload: `{"message":"bad domain"}`,
		},
		{
			name:        "failed status without error field",
			status:      http.StatusForbidden,
			body:        `{"message":"Forbidden"}`,
			wantRemote:  true,
			wantPayload: `{"message":"Forbidden"}`,
		},
		{
			name:       "failed status with html body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantRemote: false,
		},
		{
			name:       "malformed json",
			status:     http.StatusOK,
			body:       `[{"id":`,
			wantRemote: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			domains, err := c.ListDomains(context.Background(), testCredential)

			require.Error(t, err)
			assert.Nil(t, domains)

			payload, ok := entity.RemotePayload(err)
			assert.Equal(t, tt.wantRemote, ok)
			if tt.wantRemote {
				assert.JSONEq(t, tt.wantPayload, string(payload))
				return
			}

			var transportErr *entity.TransportError
			assert.ErrorAs(t, err, &transportErr)
		})
	}
}

func TestClient_FalsyErrorField(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":null,"links":[],"count":0}`))
	})

	page, err := c.ListLinks(context.Background(), testCredential, 1, 30, "")

	require.NoError(t, err)
	assert.Empty(t, page.Links)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.ListDomains(context.Background(), testCredential)

	var transportErr *entity.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestLinksPath(t *testing.T) {
	assert.Equal(t, "/api/links?domain_id=1&limit=30", LinksPath(1, 30, ""))
	assert.Equal(t, "/api/links?domain_id=1&limit=30&pageToken=abc", LinksPath(1, 30, "abc"))
}

func TestClient_ListLinks(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, LinksPrefix, r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("domain_id"))
		assert.Equal(t, "30", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("pageToken"))

		w.Write([]byte(`{"links":[{"idString":"l1","path":"one"}],"count":1,"nextPageToken":"def"}`))
	})

	page, err := c.ListLinks(context.Background(), testCredential, 7, 30, "abc")

	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "def", page.NextPageToken)
	require.Len(t, page.Links, 1)
	assert.Equal(t, "one", page.Links[0].Path)
}

func TestClient_CreateLink(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, CreatePath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"originalURL": "https://example.com",
			"domain":      "ex.am",
		}, body)

		w.Write([]byte(`{"idString":"abc123","path":"abc123","shortURL":"https://ex.am/abc123","title":null}`))
	})

	link, err := c.CreateLink(context.Background(), testCredential, entity.LinkCreateOptions{
		OriginalURL: "https://example.com",
		Domain:      "ex.am",
	})

	require.NoError(t, err)
	assert.Equal(t, "abc123", link.IDString)
	assert.Equal(t, "abc123", link.Path)
	assert.Equal(t, "https://ex.am/abc123", link.ShortURL)
	assert.Empty(t, link.Title)
}

func TestClient_UpdateLink(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/links/abc123", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "custom", body["path"])
		assert.Contains(t, body, "androidURL")

		w.Write([]byte(`{"idString":"abc123","path":"custom"}`))
	})

	link, err := c.UpdateLink(context.Background(), testCredential, "abc123", entity.LinkUpdateOptions{
		Path:        "custom",
		OriginalURL: "https://example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "custom", link.Path)
}

func TestClient_DeleteLink(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/links/abc123", r.URL.Path)

			w.Write([]byte(`{"success":true,"idString":"abc123"}`))
		})

		err := c.DeleteLink(context.Background(), testCredential, "abc123")

		assert.NoError(t, err)
	})

	t.Run("remote error", func(t *testing.T) {
		c := setupClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Link not found"}`))
		})

		err := c.DeleteLink(context.Background(), testCredential, "abc123")

		_, ok := entity.RemotePayload(err)
		assert.True(t, ok)
	})
}

func TestClient_QRCode(t *testing.T) {
	const svg = `<svg xmlns="http://www.w3.org/2000/svg"></svg>`

	t.Run("image", func(t *testing.T) {
		c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/links/qr/abc123", r.URL.Path)

			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"type":"svg","backgroundColor":"1a1a1a","color":"ffffff"}`, string(b))

			w.Header().Set("Content-Type", "image/svg+xml")
			w.Write([]byte(svg))
		})

		qr, err := c.QRCode(context.Background(), testCredential, "abc123", entity.DefaultQROptions)

		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", qr.ContentType)
		assert.Equal(t, svg, string(qr.Data))
	})

	t.Run("error payload", func(t *testing.T) {
		c := setupClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte(`{"error":"Unauthorized"}`))
		})

		qr, err := c.QRCode(context.Background(), testCredential, "abc123", entity.DefaultQROptions)

		payload, ok := entity.RemotePayload(err)
		assert.True(t, ok)
		assert.JSONEq(t, `"Unauthorized"`, string(payload))
		assert.Empty(t, qr.Data)
	})
}
