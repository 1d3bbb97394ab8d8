package permissions

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    fs.FileMode
		wantErr bool
	}{
		{"", 0o600, false},
		{"755", 0o755, false},
		{"0755", 0o755, false},
		{"0o644", 0o644, false},
		{" 0700 ", 0o700, false},
		{"0", 0, false},
		{"999", 0o600, true},
		{"rwx", 0o600, true},
		{"17777", 0o600, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input, 0o600)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
