package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"owner", RoleOwner},
		{" OWNER ", RoleOwner},
		{"admin", RoleAdmin},
		{"Principal", RoleAdmin},
		{"teacher", RoleTeacher},
		{"staff", RoleStaff},
		{"bursar", RoleStaff},
		{"", RoleStaff},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.in))
		})
	}
}

func TestRole_JSONRoundTrip(t *testing.T) {
	req := GenerationRequest{Question: "how many students", TenantID: "t1", Role: RoleTeacher}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"role":"teacher"`)

	var back GenerationRequest
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, req, back)
}

func TestRole_StringOutOfRange(t *testing.T) {
	assert.Equal(t, "unknown", Role(42).String())
}

func TestQueryType_Tabular(t *testing.T) {
	assert.True(t, QueryTypeList.Tabular())
	assert.True(t, QueryTypeGrouped.Tabular())
	assert.False(t, QueryTypeCount.Tabular())
	assert.False(t, QueryTypeAggregate.Tabular())
}
