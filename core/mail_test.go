package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/developer0000009-hue/schoolportal/fs"
)

func TestParseTemplates(t *testing.T) {
	require.NoError(t, parseTemplates(appfs.FS))

	entry, ok := templates["branch_admin_invite"]
	require.True(t, ok)
	assert.Contains(t, entry, ".txt")
	assert.Contains(t, entry, ".gohtml")
	assert.NotContains(t, templates, "_base")
}

func TestEmailMessage_Render(t *testing.T) {
	require.NoError(t, parseTemplates(appfs.FS))
	to := []mail.Address{{Name: "Ben", Address: "ben@example.com"}}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  string
		wantText string
		wantHTML string
	}{
		{
			name: "template",
			msg: EmailMessage{To: to, TemplateName: "branch_admin_invite", TemplateData: map[string]string{
				"AdminName": "Ben", "BranchName": "Lake Campus", "Code": "BR-9Z8Y7X6W",
			}},
			wantText: "BR-9Z8Y7X6W",
			wantHTML: "<code>BR-9Z8Y7X6W</code>",
		},
		{
			name:     "plain body",
			msg:      EmailMessage{To: to, BodyStr: "hello"},
			wantText: "hello",
		},
		{
			name:    "unknown template",
			msg:     EmailMessage{To: to, TemplateName: "welcome"},
			wantErr: `rendering text: email template "welcome.txt" not found`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Render()
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.False(t, tt.msg.HasContent())
				return
			}
			require.NoError(t, err)
			assert.Contains(t, tt.msg.TextContent, tt.wantText)
			if tt.wantHTML != "" {
				assert.Contains(t, tt.msg.HTMLContent, tt.wantHTML)
			}
		})
	}
}
