package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/pkg/errors"
)

func TestResendMailer_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	m := NewResendMailer("re_test", "Studio <hello@studio.dev>", srv.URL)
	id, err := m.Send(context.Background(), Message{
		To:          []string{"ana@acme.com"},
		Subject:     "Seu orçamento",
		HTML:        "<p>Olá</p>",
		Template:    "budget_sent",
		Attachments: []Attachment{{Filename: "contrato.pdf", Content: []byte("%PDF-")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)
	assert.Equal(t, "Studio <hello@studio.dev>", got["from"])
	assert.Equal(t, "Seu orçamento", got["subject"])
	assert.Len(t, got["attachments"], 1)
}

func TestResendMailer_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	m := NewResendMailer("re_test", "bad", srv.URL)
	_, err := m.Send(context.Background(), Message{To: []string{"ana@acme.com"}, Subject: "x"})
	assert.True(t, errors.IsExternalService(err))
}

func TestResendMailer_NoRecipients(t *testing.T) {
	m := NewResendMailer("re_test", "a@b.c", "")
	_, err := m.Send(context.Background(), Message{})
	assert.True(t, errors.IsValidation(err))
}

func TestLogMailer_MasksRecipients(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	m := NewLogMailer(logrus.NewEntry(log))
	id, err := m.Send(context.Background(), Message{To: []string{"ana@acme.com"}, Subject: "Oi", Template: "budget_sent"})
	require.NoError(t, err)
	assert.Equal(t, "log-budget_sent", id)
	assert.NotContains(t, buf.String(), "ana@acme.com")
	assert.Contains(t, buf.String(), "budget_sent")
}

func TestNew(t *testing.T) {
	m, err := New(config.MailConfig{Provider: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	_, err = New(config.MailConfig{Provider: "resend"})
	assert.True(t, errors.IsValidation(err))

	_, err = New(config.MailConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
