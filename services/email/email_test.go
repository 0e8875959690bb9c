package emailsvc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/developer0000009-hue/schoolportal/core"
	logsvc "github.com/developer0000009-hue/schoolportal/services/logger"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "School Portal",
		DefaultFromEmail: "School Portal <noreply@example.com>",
		FrontendBaseURL:  "http://localhost:3000",
		TestMode:         true,
	}
}

func inviteMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ann", Address: "ann@example.com"}},
		Subject:      "Branch administrator invitation",
		TemplateName: "branch_admin_invite",
		TemplateData: map[string]string{"AdminName": "Ann", "BranchName": "Hill Campus", "Code": "BR-1A2B3C4D"},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConfig()
	logger := logsvc.NewWithZap(zap.NewNop())
	core.ParseEmailTemplates(conf, logger)

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(inviteMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "BR-1A2B3C4D")
	assert.Contains(t, sent[0].TextContent, "Hill Campus")
	assert.Contains(t, sent[0].HTMLContent, "BR-1A2B3C4D")
}

func TestSendgridService(t *testing.T) {
	var (
		mu   sync.Mutex
		body []byte
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ = io.ReadAll(r.Body)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	conf := testConfig()
	conf.SendgridApiKey = "SG.key"
	logger := logsvc.NewWithZap(zap.NewNop())
	core.ParseEmailTemplates(conf, logger)

	var wg sync.WaitGroup
	svc := NewSendgridService(conf, logger)
	svc.host = srv.URL
	svc.done = wg.Done

	wg.Add(1)
	svc.SendMessages(inviteMessage())
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer SG.key", auth)
	res := gjson.ParseBytes(body)
	assert.Equal(t, "noreply@example.com", res.Get("from.email").String())
	assert.Equal(t, "ann@example.com", res.Get("personalizations.0.to.0.email").String())
	assert.Equal(t, "[School Portal] Branch administrator invitation", res.Get("personalizations.0.subject").String())
	assert.Contains(t, res.Get("content.0.value").String(), "BR-1A2B3C4D")
}
