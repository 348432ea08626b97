package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "just text", "just text"},
		{"allowed tags", "a<br>b<hr/><ul><li>x</li></ul>", "a<br>b<hr><ul><li>x</li></ul>"},
		{"markdown", "**bold** and *italic*", "<strong>bold</strong> and <em>italic</em>"},
		{"script", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"attributes", `<strong onclick="x()">hi</strong>`, "&lt;strong onclick=&#34;x()&#34;&gt;hi</strong>"},
		{"uppercase", "<BR>", "&lt;BR&gt;"},
		{"ampersand", "R&D", "R&amp;D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeReply(tt.in))
		})
	}
}
