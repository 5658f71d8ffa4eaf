package masking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "acct_****7890", MaskSecret("acct_1234567890"))
	require.Equal(t, "acct_****", MaskSecret("acct_12"))
	require.Equal(t, "", MaskSecret("  "))
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "b****@example.com", MaskEmail("buyer@example.com"))
	require.Equal(t, "****", MaskEmail("nope"))
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"buyer_email": "buyer@example.com",
		"order_id":    "123",
		"amount":      int64(500),
		"nested":      map[string]any{"processor_account_id": "acct_1234567890"},
		" ":           "dropped",
	})
	require.Equal(t, "b****@example.com", out["buyer_email"])
	require.Equal(t, "123", out["order_id"])
	require.Equal(t, int64(500), out["amount"])
	require.Equal(t, map[string]any{"processor_account_id": "acct_****7890"}, out["nested"])
	require.NotContains(t, out, " ")
	require.Nil(t, MaskMetadata(nil))
}
