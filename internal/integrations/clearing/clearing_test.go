package clearing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasvidela94/wallet-service/internal/config"
)

func testClient(url string) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(&config.Config{ClearingURL: url}, log)
}

func TestSubmitAccepted(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
			<TransferResponse>
				<Status>ACCEPTED</Status>
				<Ack>clr-000123</Ack>
			</TransferResponse>`))
	}))
	defer srv.Close()

	ack, err := testClient(srv.URL).Submit(context.Background(),
		"2850590940090418135201", "Banco Macro", "ref-1", decimal.NewFromInt(4000))
	require.NoError(t, err)
	assert.Equal(t, "clr-000123", ack)

	payload := string(received)
	assert.Contains(t, payload, "<Destination>2850590940090418135201</Destination>")
	assert.Contains(t, payload, "<Amount>4000.00</Amount>")
	assert.Contains(t, payload, "<Reference>ref-1</Reference>")
}

func TestSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<TransferResponse><Status>REJECTED</Status><Reason>account closed</Reason></TransferResponse>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Submit(context.Background(), "2850590940090418135201", "Banco Macro", "ref-2", decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account closed")
}

func TestSubmitBadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Submit(context.Background(), "2850590940090418135201", "Banco Macro", "ref-3", decimal.NewFromInt(10))
	assert.Error(t, err)
}

func TestSubmitMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<TransferResponse><Status>ACCEPTED</Status></TransferResponse>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Submit(context.Background(), "2850590940090418135201", "Banco Macro", "ref-4", decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acknowledgement")
}
