package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/parser"
	"github.com/funvibe/annoscene/internal/scene"
)

const saved = `package p: @p.Pkg
annotation @p.Pkg:
annotation @p.A:
    int n
class C: @p.A(n=1)
    field f: @p.A(n=2)
class D:
    method run()V:
        return: @p.A(n=3)
package q:
class E: @p.Pkg
`

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "scene.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sceneOf(t *testing.T, text string) *scene.Scene {
	t.Helper()
	s := scene.New()
	require.NoError(t, parser.ParseInto(context.Background(), s, "saved.jaif", strings.NewReader(text)))
	return s
}

func TestSaveAndLoadAll(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	s := sceneOf(t, saved)

	n, err := st.Save(ctx, s)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	names, err := st.Classes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"p.C", "p.D", "q.E"}, names)

	loaded := scene.New()
	require.NoError(t, st.Load(ctx, loaded))
	require.True(t, scene.Equal(s, loaded))
}

func TestLoadNamedClassBringsPackage(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	_, err := st.Save(ctx, sceneOf(t, saved))
	require.NoError(t, err)

	loaded := scene.New()
	require.NoError(t, st.Load(ctx, loaded, "p.C", "p.D"))
	require.Equal(t, []string{"p.C", "p.D"}, loaded.Classes.Keys())
	pkg, ok := loaded.Packages.Get("p")
	require.True(t, ok)
	require.NotNil(t, pkg.Lookup("p.Pkg"))

	err = st.Load(ctx, scene.New(), "p.Missing")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestSaveReplacesClass(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)
	_, err := st.Save(ctx, sceneOf(t, saved))
	require.NoError(t, err)
	_, err = st.Save(ctx, sceneOf(t, "package p:\nannotation @p.A:\n    int n\nclass C: @p.A(n=9)\n"))
	require.NoError(t, err)

	loaded := scene.New()
	require.NoError(t, st.Load(ctx, loaded, "p.C"))
	c, _ := loaded.Classes.Get("p.C")
	n, _ := c.Lookup("p.A").Get("n")
	require.Equal(t, annotation.IntValue(9), n)
	_, ok := c.Fields.Get("f")
	require.False(t, ok, "stale field survived the replace")
}
