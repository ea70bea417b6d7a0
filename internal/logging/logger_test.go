package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextLoggers(t *testing.T) {
	tests := []struct {
		name string
		log  func(buf *bytes.Buffer)
		want string
	}{
		{
			name: "component",
			log: func(buf *bytes.Buffer) {
				l := Component("engine").Output(buf)
				l.Info().Msg("started")
			},
			want: `"component":"engine"`,
		},
		{
			name: "principal",
			log: func(buf *bytes.Buffer) {
				l := WithPrincipal("alice").Output(buf)
				l.Info().Msg("signed in")
			},
			want: `"principal_id":"alice"`,
		},
		{
			name: "conversation",
			log: func(buf *bytes.Buffer) {
				l := WithConversation("conv-1").Output(buf)
				l.Info().Msg("opened")
			},
			want: `"conversation_id":"conv-1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(&buf)
			require.Contains(t, buf.String(), tt.want)
		})
	}
}
