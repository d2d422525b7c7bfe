package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studygroups/core"
	logsvc "github.com/trezcool/studygroups/services/logger"
)

func testConf() *core.Config {
	return &core.Config{AppName: "Study Groups"}
}

type groupMail struct {
	AppName  string
	Name     string
	Subject  string
	Language string
	GroupID  int
	Mates    []string
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(testConf(), logsvc.NewNop())
	to := []mail.Address{{Name: "Amanda", Address: "amanda@example.com"}}

	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "hello"},
		&core.EmailMessage{
			To:           to,
			Subject:      "group",
			TemplateName: "group_formed",
			TemplateData: groupMail{AppName: "Study Groups", Name: "Amanda", Subject: "CS101", Language: "English", GroupID: 3, Mates: []string{"Carl", "Esther"}},
		},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
		&core.EmailMessage{To: to, Subject: "unknown template", TemplateName: "nope"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)

	txt := sent[1].TextContent
	assert.True(t, strings.HasPrefix(txt, "Hello Amanda,"), txt)
	assert.Contains(t, txt, "study group #3 for CS101 (English)")
	assert.Contains(t, txt, "  - Carl\n  - Esther\n")
	assert.Contains(t, sent[1].HTMLContent, "<li>Esther</li>")
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConf(), logsvc.NewNop())
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Amanda", Address: "amanda@example.com"}},
		Cc:          []mail.Address{{Address: "tutor@example.com"}},
		Subject:     "Your CS101 study group",
		TextContent: "text",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Study Groups] Your CS101 study group", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "amanda@example.com", p.To[0].Address)
	require.Len(t, p.CC, 1)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "Study Groups", m.From.Name)
}
