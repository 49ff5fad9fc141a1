package cli

import "testing"

func TestNormalizer(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{
			name:   "crlf collapses",
			chunks: []string{"Link is UP\r\nswitch#"},
			want:   "Link is UP\nswitch#",
		},
		{
			name:   "blank line runs collapse",
			chunks: []string{"a\r\n\r\n\r\nb"},
			want:   "a\nb",
		},
		{
			name:   "backspace and nul dropped",
			chunks: []string{"\x08\x08\x08\x08more\x00 text"},
			want:   "more text",
		},
		{
			name:   "escape and two bytes dropped",
			chunks: []string{"\x1b[Kport1.0.1"},
			want:   "port1.0.1",
		},
		{
			name:   "escape split across chunks",
			chunks: []string{"abc\x1b", "[Kdef"},
			want:   "abcdef",
		},
		{
			name:   "line break split across chunks",
			chunks: []string{"line\r", "\nnext"},
			want:   "line\nnext",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Normalizer
			got := ""
			for _, c := range tt.chunks {
				got += n.Normalize([]byte(c))
			}
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}
