package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Amount_MarshalJSON(t *testing.T) {
	got, err := json.Marshal(NewAmount(dec(t, "5000")))
	require.NoError(t, err)
	assert.Equal(t, `"5000.00"`, string(got))

	got, err = json.Marshal(NewAmount(dec(t, "999.5")))
	require.NoError(t, err)
	assert.Equal(t, `"999.50"`, string(got))
}

func Test_Amount_UnmarshalJSON(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"4500.00"`), &a))
	assert.True(t, a.Equal(dec(t, "4500")))
}
