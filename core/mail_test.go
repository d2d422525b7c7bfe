package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMailData struct {
	AppName  string
	Name     string
	Subject  string
	Language string
	GroupID  int
	Mates    []string
}

func TestEmailMessage_Render(t *testing.T) {
	data := testMailData{
		AppName:  "Study Groups",
		Name:     "Amanda",
		Subject:  "CS101",
		Language: "English",
		GroupID:  3,
		Mates:    []string{"Bethany", "Carl"},
	}

	tests := []struct {
		name     string
		tmpl     string
		wantText []string
		wantHTML []string
	}{
		{
			name:     "group formed",
			tmpl:     "group_formed",
			wantText: []string{"Hello Amanda,", "study group #3 for CS101 (English)", "  - Bethany\n", "  - Carl\n", "-- Study Groups"},
			wantHTML: []string{"<p>Hello Amanda,</p>", "<b>#3</b>", "<li>Bethany</li><li>Carl</li>"},
		},
		{
			name:     "seat filled",
			tmpl:     "seat_filled",
			wantText: []string{"Hello Amanda,", "A seat opened up and you joined study group #3 for CS101 (English).", "-- Study Groups"},
			wantHTML: []string{"<p>Hello Amanda,</p>", "<b>#3</b>", "<p>-- Study Groups</p>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &EmailMessage{
				To:           []mail.Address{{Name: "Amanda", Address: "amanda@example.com"}},
				Subject:      "Your CS101 study group",
				TemplateName: tt.tmpl,
				TemplateData: data,
			}
			require.NoError(t, msg.Render())
			assert.True(t, msg.HasContent())
			for _, want := range tt.wantText {
				assert.Contains(t, msg.TextContent, want)
			}
			for _, want := range tt.wantHTML {
				assert.Contains(t, msg.HTMLContent, want)
			}
		})
	}
}

func TestEmailMessage_RenderBody(t *testing.T) {
	msg := &EmailMessage{Subject: "hi", BodyStr: "plain body"}
	require.NoError(t, msg.Render())
	assert.Equal(t, "plain body", msg.TextContent)
	assert.Empty(t, msg.HTMLContent)
}
