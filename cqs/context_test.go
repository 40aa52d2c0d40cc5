package cqs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Permission
		wantErr bool
	}{
		{name: "canonical", input: "BLGPST:read", want: Permission{EntityDefinitionCode: "BLGPST", Code: PermissionRead}},
		{name: "normalises case", input: " blgpst:UPDATE ", want: Permission{EntityDefinitionCode: "BLGPST", Code: PermissionUpdate}},
		{name: "missing action", input: "BLGPST:", wantErr: true},
		{name: "missing separator", input: "BLGPST", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePermission(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.EntityDefinitionCode+":"+tt.want.Code, got.String())
		})
	}
}

func TestPermissionSet(t *testing.T) {
	read := Permission{EntityDefinitionCode: "BLGPST", Code: PermissionRead}
	update := Permission{EntityDefinitionCode: "BLGPST", Code: PermissionUpdate}
	set := NewPermissionSet(update, read, read)

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(read))
	assert.False(t, set.Has(Permission{EntityDefinitionCode: "OTHER1", Code: PermissionRead}))
	assert.Equal(t, []Permission{read, update}, set.List())

	var empty PermissionSet
	assert.False(t, empty.Has(read))
	assert.Empty(t, empty.List())
}

func TestExecutionContextCan(t *testing.T) {
	read := Permission{EntityDefinitionCode: "BLGPST", Code: PermissionRead}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	user := NewExecutionContext(&User{ID: 7, Username: "ed"}, NewPermissionSet(read), now)
	assert.True(t, user.Can(read))
	assert.False(t, user.Can(Permission{EntityDefinitionCode: "BLGPST", Code: PermissionDelete}))
	assert.False(t, user.IsElevated())
	assert.Equal(t, 7, user.UserID())
	assert.NotEqual(t, uuid.Nil, user.RequestID)

	system := SystemExecutionContext(now)
	assert.True(t, system.IsElevated())
	assert.True(t, system.Can(Permission{EntityDefinitionCode: "ANY123", Code: PermissionDelete}))
	assert.Equal(t, now, system.ExecutionDate)

	var nilCtx *ExecutionContext
	assert.False(t, nilCtx.Can(read))
	assert.False(t, nilCtx.IsElevated())
	assert.Zero(t, nilCtx.UserID())
}

func TestExecutionOption(t *testing.T) {
	assert.False(t, Ambient().IsExplicit())
	assert.True(t, Explicit(SystemExecutionContext(time.Now())).IsExplicit())
	assert.True(t, Explicit(nil).IsExplicit())
}

func TestRequestContextProvider(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	provider := RequestContextProvider{Now: func() time.Time { return fixed }}

	t.Run("anonymous without stored context", func(t *testing.T) {
		ec, err := provider.Ambient(context.Background())
		require.NoError(t, err)
		assert.Nil(t, ec.User)
		assert.Zero(t, ec.Permissions.Len())
		assert.Equal(t, fixed, ec.ExecutionDate)
		assert.False(t, ec.IsElevated())
	})

	t.Run("stored context gets defaults without mutation", func(t *testing.T) {
		stored := &ExecutionContext{User: &User{ID: 3}}
		ctx := WithExecutionContext(context.Background(), stored)

		ec, err := provider.Ambient(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, ec.UserID())
		assert.Equal(t, fixed, ec.ExecutionDate)
		assert.NotEqual(t, uuid.Nil, ec.RequestID)
		assert.True(t, stored.ExecutionDate.IsZero())
		assert.Equal(t, uuid.Nil, stored.RequestID)
	})

	t.Run("stored nil is anonymous", func(t *testing.T) {
		ctx := WithExecutionContext(context.Background(), nil)
		_, ok := ExecutionContextFromContext(ctx)
		assert.False(t, ok)
		ec, err := provider.Ambient(ctx)
		require.NoError(t, err)
		assert.Nil(t, ec.User)
	})
}
