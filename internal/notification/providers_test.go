package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petwatch/petwatch-go/internal/httpclient"
)

func newMockedClient(t *testing.T) (*httpclient.Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := httpclient.New(nil)
	client.SetTransport(transport)
	return client, transport
}

func TestTelegramSendMessage(t *testing.T) {
	client, transport := newMockedClient(t)

	var gotPayload map[string]string
	transport.RegisterResponder(http.MethodPost, "https://api.telegram.org/botTOKEN/sendMessage",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&gotPayload))
			return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
		})

	p := NewTelegramProvider(true, "TOKEN", "42", client)
	n := NewDetection("miso", 0.92, "", time.Now())
	require.NoError(t, p.Send(context.Background(), n))

	assert.Equal(t, "42", gotPayload["chat_id"])
	assert.Equal(t, "Miso detected (92% confidence)", gotPayload["text"])
}

func TestTelegramSendPhotoWithSnapshot(t *testing.T) {
	client, transport := newMockedClient(t)

	var photoCalls atomic.Int32
	transport.RegisterResponder(http.MethodPost, "https://api.telegram.org/botTOKEN/sendPhoto",
		func(req *http.Request) (*http.Response, error) {
			photoCalls.Add(1)
			require.NoError(t, req.ParseMultipartForm(1<<20))
			assert.Equal(t, "42", req.FormValue("chat_id"))
			assert.Contains(t, req.FormValue("caption"), "Miso detected")
			_, header, err := req.FormFile("photo")
			require.NoError(t, err)
			assert.Equal(t, "miso.jpg", header.Filename)
			return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
		})

	imagePath := filepath.Join(t.TempDir(), "miso.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpegdata"), 0o644))

	p := NewTelegramProvider(true, "TOKEN", "42", client)
	n := NewDetection("miso", 0.92, imagePath, time.Now())
	require.NoError(t, p.Send(context.Background(), n))
	assert.Equal(t, int32(1), photoCalls.Load())
}

func TestTelegramMissingImageFallsBackToText(t *testing.T) {
	client, transport := newMockedClient(t)

	transport.RegisterResponder(http.MethodPost, "https://api.telegram.org/botTOKEN/sendMessage",
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true}`))

	p := NewTelegramProvider(true, "TOKEN", "42", client)
	n := NewDetection("miso", 0.9, "/nonexistent/snapshot.jpg", time.Now())
	require.NoError(t, p.Send(context.Background(), n))
}

func TestTelegramAPIErrorSurfaced(t *testing.T) {
	client, transport := newMockedClient(t)

	transport.RegisterResponder(http.MethodPost, "https://api.telegram.org/botTOKEN/sendMessage",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"ok":false,"description":"Unauthorized"}`))

	p := NewTelegramProvider(true, "TOKEN", "42", client)
	err := p.Send(context.Background(), NewDetection("miso", 0.9, "", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTelegramValidateConfig(t *testing.T) {
	client := httpclient.New(nil)

	assert.NoError(t, NewTelegramProvider(false, "", "", client).ValidateConfig())
	assert.Error(t, NewTelegramProvider(true, "", "42", client).ValidateConfig())
	assert.Error(t, NewTelegramProvider(true, "TOKEN", "", client).ValidateConfig())
	assert.NoError(t, NewTelegramProvider(true, "TOKEN", "42", client).ValidateConfig())
}

func TestDiscordAcceptsNoContent(t *testing.T) {
	client, transport := newMockedClient(t)

	transport.RegisterResponder(http.MethodPost, "https://discord.test/webhook",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	p := NewDiscordProvider(true, "https://discord.test/webhook", client)
	require.NoError(t, p.Send(context.Background(), NewDetection("luna", 0.8, "", time.Now())))
}

func TestDiscordAttachesSnapshot(t *testing.T) {
	client, transport := newMockedClient(t)

	transport.RegisterResponder(http.MethodPost, "https://discord.test/webhook",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))
			assert.Contains(t, req.FormValue("content"), "Luna detected")
			_, _, err := req.FormFile("file")
			require.NoError(t, err)
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	imagePath := filepath.Join(t.TempDir(), "luna.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpegdata"), 0o644))

	p := NewDiscordProvider(true, "https://discord.test/webhook", client)
	require.NoError(t, p.Send(context.Background(), NewDetection("luna", 0.8, imagePath, time.Now())))
}

func TestWebhookFailover(t *testing.T) {
	var primaryHits, secondaryHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondaryHits.Add(1)
		var payload webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "miso", payload.Label)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "petwatch", r.Header.Get("X-Source"))
		w.WriteHeader(http.StatusOK)
	}))
	defer secondary.Close()

	p := NewWebhookProvider(true,
		[]string{primary.URL, secondary.URL},
		map[string]string{"X-Source": "petwatch"},
		"secret",
		httpclient.New(nil))

	err := p.Send(context.Background(), NewDetection("miso", 0.9, "", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(1), secondaryHits.Load())
}

func TestWebhookAllEndpointsFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewWebhookProvider(true, []string{server.URL}, nil, "", httpclient.New(nil))
	err := p.Send(context.Background(), NewDetection("miso", 0.9, "", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestConsoleProviderOutput(t *testing.T) {
	p := NewConsoleProvider(true)
	var buf bytes.Buffer
	p.SetOutput(&buf)

	n := NewDetection("miso", 0.92, "/tmp/miso.jpg", time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC))
	require.NoError(t, p.Send(context.Background(), n))

	out := buf.String()
	assert.Contains(t, out, "2026-08-23 10:30:00")
	assert.Contains(t, out, "detection")
	assert.Contains(t, out, "Miso detected (92% confidence)")
	assert.Contains(t, out, "/tmp/miso.jpg")
}

func TestMQTTValidateConfig(t *testing.T) {
	assert.NoError(t, NewMQTTProvider(false, "", "", "", "", "", false).ValidateConfig())
	assert.Error(t, NewMQTTProvider(true, "", "pets", "", "", "", false).ValidateConfig())
	assert.Error(t, NewMQTTProvider(true, "tcp://localhost:1883", "", "", "", "", false).ValidateConfig())
	assert.NoError(t, NewMQTTProvider(true, "tcp://localhost:1883", "pets", "", "", "", false).ValidateConfig())
}

func TestShoutrrrValidateConfig(t *testing.T) {
	assert.NoError(t, NewShoutrrrProvider(false, nil, time.Second).ValidateConfig())
	assert.Error(t, NewShoutrrrProvider(true, nil, time.Second).ValidateConfig())
	assert.Error(t, NewShoutrrrProvider(true, []string{"not-a-service-url"}, time.Second).ValidateConfig())
	assert.NoError(t, NewShoutrrrProvider(true, []string{"logger://"}, time.Second).ValidateConfig())
}
