package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body     string
		want    *Verdict
		wantErr bool
	}{
		{name: "true", body: `{"result": true}`, want: &Verdict{Allow: true}},
		{name: "false", body: `{"result": false}`, want: &Verdict{Allow: false}},
		{
			name: "object with metadata",
			body: `{"result": {"allow": true, "reason": "ok", "limit": 100}, "decision_id": "abc"}`,
			want: &Verdict{
				Allow:      true,
				Reason:     "ok",
				DecisionID: "abc",
				Metadata:   map[string]interface{}{"limit": float64(100)},
			},
		},
		{
			name: "non-string reason kept as metadata",
			body: `{"result": {"allow": false, "reason": ["a", "b"]}}`,
			want: &Verdict{Metadata: map[string]interface{}{"reason": []interface{}{"a", "b"}}},
		},
		{name: "missing result", body: `{"decision_id": "abc"}`, wantErr: true},
		{name: "null result", body: `{"result": null}`, wantErr: true},
		{name: "allow not boolean", body: `{"result": {"allow": "true"}}`, wantErr: true},
		{name: "number result", body: `{"result": 1}`, wantErr: true},
		{name: "array result", body: `{"result": [true]}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseVerdict([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrPolicyEngineProtocolError)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePolicyPath(t *testing.T) {
	t.Parallel()

	valid := []string{"system/main", "orders/allow", "/orders/allow/", "authz"}
	for _, p := range valid {
		assert.NoError(t, ValidatePolicyPath(p), p)
	}

	invalid := []string{"", "/", "orders//allow", "orders/./allow", "../admin", "orders/allow?x=1", "orders/al low"}
	for _, p := range invalid {
		assert.Error(t, ValidatePolicyPath(p), p)
	}
}

func TestEscapePolicyPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "orders/allow", escapePolicyPath("/orders/allow/"))
	assert.Equal(t, "orders/a%25b", escapePolicyPath("orders/a%b"))
}
