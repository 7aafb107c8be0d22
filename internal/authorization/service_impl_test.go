package authorization

import (
	"context"
	"testing"

	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db, err := dbpkg.NewTest()
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAdminCanManageEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, object := range []string{ObjectOrder, ObjectGateway, ObjectSettings, ObjectTraffic} {
		assert.NoError(t, svc.Authorize(ctx, "101", "admin", object, ActionManage), object)
		assert.NoError(t, svc.Authorize(ctx, "101", "admin", object, ActionView), object)
	}
}

func TestClientIsForbiddenFromBackOffice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "202", "client", ObjectOrder, ActionView), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, "202", "client", ObjectTenant, ActionView))
	assert.ErrorIs(t, svc.Authorize(ctx, "202", "client", ObjectTenant, ActionManage), ErrForbidden)
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "303", "admin", ObjectOrder, ActionManage))
	assert.ErrorIs(t, svc.Authorize(ctx, "303", "client", ObjectOrder, ActionManage), ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "abc", "admin", ObjectOrder, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", "", ObjectOrder, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", "admin", "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", "admin", ObjectOrder, ""), ErrInvalidAction)
}
