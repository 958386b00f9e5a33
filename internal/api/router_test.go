package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/seedvault/internal/handler"
	"github.com/AlexZinkM/seedvault/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyWallet struct{}

func (emptyWallet) HasStoredWallet() bool                   { return false }
func (emptyWallet) StorageID() string                       { return "" }
func (emptyWallet) CreateWallet(context.Context) error      { return nil }
func (emptyWallet) Decrypt(context.Context) ([]byte, error) { return nil, nil }

func TestSetupRouter(t *testing.T) {
	sess := session.New(emptyWallet{}, nil)
	defer sess.Close()

	seedHandler, err := handler.NewSeedHandler(sess, filepath.Join(t.TempDir(), "wallet.cwt"), nil)
	require.NoError(t, err)

	server := httptest.NewServer(SetupRouter(seedHandler))
	defer server.Close()

	tests := []struct {
		path string
		code int
	}{
		{"/seed/status", http.StatusOK},
		{"/seed/phrase", http.StatusNotFound},
		{"/wallet", http.StatusNotFound},
		{"/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}

	resp, err := http.Get(server.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/seed/revoke")
}
