package deployer

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constructor(t *testing.T, types ...string) abi.ABI {
	t.Helper()
	inputs := make([]string, len(types))
	for i, typ := range types {
		inputs[i] = `{"name":"","type":"` + typ + `"}`
	}
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"constructor","inputs":[` + strings.Join(inputs, ",") + `]}]`))
	require.NoError(t, err)
	return parsed
}

func TestPackArgs(t *testing.T) {
	parsed := constructor(t, "address", "uint256", "uint64", "int8", "bool", "string", "bytes", "bytes4")

	values, err := PackArgs(parsed, []string{
		addressProvider, "0x10", "42", "-5", "true", "flash", "0xdead", "0xcafe",
	})
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(addressProvider), values[0])
	assert.Equal(t, big.NewInt(16), values[1])
	assert.Equal(t, uint64(42), values[2])
	assert.Equal(t, int8(-5), values[3])
	assert.Equal(t, true, values[4])
	assert.Equal(t, "flash", values[5])
	assert.Equal(t, []byte{0xde, 0xad}, values[6])
	assert.Equal(t, [4]byte{0xca, 0xfe, 0, 0}, values[7])

	_, err = parsed.Pack("", values...)
	require.NoError(t, err)
}

func TestPackArgsErrors(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		arg   string
		match string
	}{
		{"empty address", "address", "", "not an address"},
		{"short address", "address", "0x1234", "not an address"},
		{"negative uint", "uint256", "-1", "negative"},
		{"overflow", "uint8", "256", "overflows"},
		{"signed overflow", "int8", "128", "overflows"},
		{"signed underflow", "int8", "-129", "overflows"},
		{"not a number", "uint256", "ten", "not an integer"},
		{"bool", "bool", "maybe", "not a bool"},
		{"fixed bytes too long", "bytes2", "0x010203", "do not fit"},
		{"unsupported", "address[]", "[]", "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PackArgs(constructor(t, tt.typ), []string{tt.arg})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.match)
		})
	}
}

func TestPackArgsIntegerBounds(t *testing.T) {
	tests := []struct {
		typ  string
		arg  string
		want interface{}
	}{
		{"int8", "-128", int8(-128)},
		{"int8", "127", int8(127)},
		{"int16", "-32768", int16(-32768)},
		{"int64", "-9223372036854775808", int64(-9223372036854775808)},
		{"uint8", "255", uint8(255)},
		{"uint64", "0xffffffffffffffff", uint64(18446744073709551615)},
	}
	for _, tt := range tests {
		t.Run(tt.typ+" "+tt.arg, func(t *testing.T) {
			values, err := PackArgs(constructor(t, tt.typ), []string{tt.arg})
			require.NoError(t, err)
			assert.Equal(t, tt.want, values[0])
		})
	}

	values, err := PackArgs(constructor(t, "int256"), []string{"-0x8000000000000000000000000000000000000000000000000000000000000000"})
	require.NoError(t, err)
	lowest := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	assert.Equal(t, 0, lowest.Cmp(values[0].(*big.Int)))
}

func TestPackArgsCount(t *testing.T) {
	_, err := PackArgs(constructor(t, "address"), nil)
	require.EqualError(t, err, "constructor takes 1 arguments, got 0")
}
