package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		err  error
	}{
		{name: "lower-cased and trimmed", raw: "  Siti.Rahma@Example.COM ", want: "siti.rahma@example.com"},
		{name: "empty", raw: "   ", err: ErrRequired},
		{name: "missing domain", raw: "siti@", err: ErrInvalid},
		{name: "display name form", raw: "Siti <siti@example.com>", err: ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "Siti Rahma", DeriveName("siti.rahma@example.com"))
	assert.Equal(t, "Budi Santoso", DeriveName("BUDI_santoso@example.com"))
	assert.Equal(t, "Agus", DeriveName("agus1987@example.com"))
	assert.Equal(t, "", DeriveName("2024@example.com"))
}
