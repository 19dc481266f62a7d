package tronaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"wrong length", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquat", true},
		{"wrong prefix", "ARjSYTUmXJByV1vDeWTrqXCRECnqDquatH", true},
		{"bad checksum", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatX", true},
		{"well formed", "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.addr)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEVMRoundTrip(t *testing.T) {
	const addr = "TRjSYTUmXJByV1vDeWTrqXCRECnqDquatH"
	evm, err := ToEVM(addr)
	assert.NoError(t, err)
	assert.Equal(t, addr, FromEVM(evm))
}
