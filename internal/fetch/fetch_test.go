package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>こんにちは</h1></body></html>"))
	}))
	defer srv.Close()

	html, err := New(time.Second, zerolog.Nop()).HTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "こんにちは")
}

func TestHTML_DecodesLegacyCharset(t *testing.T) {
	// "日本" in Shift_JIS.
	sjis := []byte{0x93, 0xfa, 0x96, 0x7b}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=shift_jis")
		_, _ = w.Write(append(append([]byte("<p>"), sjis...), []byte("</p>")...))
	}))
	defer srv.Close()

	html, err := New(time.Second, zerolog.Nop()).HTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>日本</p>", html)
}

func TestHTML_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(time.Second, zerolog.Nop()).HTML(context.Background(), srv.URL)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.False(t, fe.Timeout())
}

func TestHTML_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(50*time.Millisecond, zerolog.Nop()).HTML(context.Background(), srv.URL)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Timeout())
}
