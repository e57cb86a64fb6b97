package sdk

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/linecsv/pkg/api"
	"github.com/nicktill/linecsv/pkg/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.New()
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, nil)
	router := mux.NewRouter()
	router.HandleFunc("/v1/convert", handler.HandleConvert).Methods("POST")
	router.HandleFunc("/v1/conversions/{hash}", handler.HandleGetConversion).Methods("GET")
	router.HandleFunc("/v1/health", handler.HandleHealth).Methods("GET")

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestClientConvert(t *testing.T) {
	server := newTestServer(t)

	client, err := New(ClientConfig{Endpoint: server.URL})
	require.NoError(t, err)

	result, err := client.Convert(context.Background(), "cpu,host=a value=1 100\nnot_a_record", "unit-test")
	require.NoError(t, err)

	require.Equal(t, "measurement,host,value,timestamp\ncpu,a,1,100\n", result.CSV)
	require.Equal(t, 1, result.Points)
	require.Equal(t, 1, result.Skipped)
	require.False(t, result.Cached)
	require.False(t, result.NoData)
	require.NotEmpty(t, result.Hash)

	// Second conversion of the same document is served from the store
	repeat, err := client.Convert(context.Background(), "cpu,host=a value=1 100\nnot_a_record", "unit-test")
	require.NoError(t, err)
	require.True(t, repeat.Cached)
	require.Equal(t, result.CSV, repeat.CSV)
}

func TestClientConvert_NoData(t *testing.T) {
	server := newTestServer(t)

	client, err := New(ClientConfig{Endpoint: server.URL})
	require.NoError(t, err)

	result, err := client.Convert(context.Background(), "# comments only\n", "")
	require.NoError(t, err)
	require.True(t, result.NoData)
	require.Empty(t, result.CSV)
}

func TestClientGetConversion(t *testing.T) {
	server := newTestServer(t)

	client, err := New(ClientConfig{Endpoint: server.URL})
	require.NoError(t, err)

	result, err := client.Convert(context.Background(), "mem used=512", "")
	require.NoError(t, err)

	csv, err := client.GetConversion(context.Background(), result.Hash)
	require.NoError(t, err)
	require.Equal(t, result.CSV, csv)

	_, err = client.GetConversion(context.Background(), "ffffffffffffffff")
	require.Error(t, err)
}

func TestClientHealth(t *testing.T) {
	server := newTestServer(t)

	client, err := New(ClientConfig{Endpoint: server.URL})
	require.NoError(t, err)
	require.NoError(t, client.Health(context.Background()))
}

func TestClientDefaults(t *testing.T) {
	client, err := New(ClientConfig{})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", client.config.Endpoint)
	require.NotZero(t, client.config.Timeout)
}
