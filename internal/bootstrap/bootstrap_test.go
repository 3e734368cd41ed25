package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/engine"
	"github.com/dmitrijs2005/sitestore/internal/logging"
	"github.com/dmitrijs2005/sitestore/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	image []byte
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) TryLoad(context.Context) ([]byte, bool) {
	s.calls++
	return s.image, s.image != nil
}

func validImage(t *testing.T, table string) []byte {
	t.Helper()
	ctx := context.Background()
	e, err := engine.Open(ctx, nil)
	require.NoError(t, err)
	defer e.Close()
	_, err = e.DB().ExecContext(ctx, `CREATE TABLE `+table+` (v TEXT)`)
	require.NoError(t, err)
	image, err := e.Serialize(ctx)
	require.NoError(t, err)
	return image
}

func hasTable(t *testing.T, e *engine.Engine, name string) bool {
	t.Helper()
	var n int
	err := e.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestRun_LocalHit(t *testing.T) {
	local := &stubSource{name: "local", image: validImage(t, "from_local")}
	remote := &stubSource{name: "remote", image: validImage(t, "from_remote")}

	b := New(local, remote, false, logging.Discard())
	res, err := b.Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginLocal, res.Origin)
	assert.Equal(t, []State{StateInit, StateTryingLocal, StateReady}, res.Trail)
	assert.True(t, hasTable(t, res.Engine, "from_local"))
	assert.Equal(t, 0, remote.calls, "remote must not be consulted after a local hit")
	assert.Equal(t, StateReady, b.State())
}

func TestRun_LocalAbsentRemoteHit(t *testing.T) {
	local := &stubSource{name: "local"}
	remote := &stubSource{name: "remote", image: validImage(t, "from_remote")}

	res, err := New(local, remote, false, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginRemote, res.Origin)
	assert.Equal(t, []State{StateInit, StateTryingLocal, StateTryingRemote, StateReady}, res.Trail)
	assert.True(t, hasTable(t, res.Engine, "from_remote"))
}

func TestRun_BothAbsentGoesFresh(t *testing.T) {
	local := &stubSource{name: "local"}
	remote := &stubSource{name: "remote"}

	res, err := New(local, remote, false, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginFresh, res.Origin)
	assert.Equal(t, []State{StateInit, StateTryingLocal, StateTryingRemote, StateFresh, StateReady}, res.Trail)
	assert.Equal(t, 1, remote.calls)
}

func TestRun_DevelopmentNeverConsultsRemote(t *testing.T) {
	local := &stubSource{name: "local"}
	remote := &stubSource{name: "remote", image: validImage(t, "from_remote")}

	res, err := New(local, remote, true, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginFresh, res.Origin)
	assert.Equal(t, []State{StateInit, StateTryingLocal, StateFresh, StateReady}, res.Trail)
	assert.Equal(t, 0, remote.calls)
	assert.False(t, hasTable(t, res.Engine, "from_remote"))
}

func TestRun_DevelopmentStillUsesLocal(t *testing.T) {
	local := &stubSource{name: "local", image: validImage(t, "from_local")}

	res, err := New(local, nil, true, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginLocal, res.Origin)
}

func TestRun_UnopenableLocalImageFallsThrough(t *testing.T) {
	local := &stubSource{name: "local", image: []byte("decoded fine but this is not an sqlite database at all")}
	remote := &stubSource{name: "remote", image: validImage(t, "from_remote")}

	res, err := New(local, remote, false, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginRemote, res.Origin)
}

func TestRun_NilRemoteBehavesLikeEmpty(t *testing.T) {
	res, err := New(snapshot.EmptySource{}, nil, false, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	assert.Equal(t, OriginFresh, res.Origin)
}

func TestRun_OnlyOnce(t *testing.T) {
	b := New(snapshot.EmptySource{}, nil, false, logging.Discard())
	res, err := b.Run(context.Background())
	require.NoError(t, err)
	defer res.Engine.Close()

	_, err = b.Run(context.Background())
	require.ErrorIs(t, err, common.ErrAlreadyBootstrapped)
}

func TestRun_FreshEngineFailure(t *testing.T) {
	b := New(snapshot.EmptySource{}, nil, false, logging.Discard()).
		WithOpener(func(context.Context, []byte) (*engine.Engine, error) {
			return nil, errors.New("out of memory")
		})

	_, err := b.Run(context.Background())
	require.ErrorContains(t, err, "create empty engine")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "trying_remote", StateTryingRemote.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestRun_RestoredEnginesCloseCleanly(t *testing.T) {
	tests := []struct {
		name   string
		local  *stubSource
		remote *stubSource
		want   Origin
	}{
		{
			name:   "local image",
			local:  &stubSource{name: "local", image: validImage(t, "from_local")},
			remote: &stubSource{name: "remote"},
			want:   OriginLocal,
		},
		{
			name:   "remote image",
			local:  &stubSource{name: "local"},
			remote: &stubSource{name: "remote", image: validImage(t, "from_remote")},
			want:   OriginRemote,
		},
		{
			name:   "both images rejected",
			local:  &stubSource{name: "local", image: []byte("not a database, local copy of garbage text")},
			remote: &stubSource{name: "remote", image: []byte("not a database, remote copy of garbage text")},
			want:   OriginFresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(tt.local, tt.remote, false, logging.Discard()).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Origin)

			_, err = res.Engine.DB().Exec(`CREATE TABLE touched (v TEXT)`)
			require.NoError(t, err)
			require.NoError(t, res.Engine.Close())
		})
	}
}
