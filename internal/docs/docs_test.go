package docs

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoamaral/VSCside/internal/imagesim"
	"github.com/guillermoamaral/VSCside/internal/remote"
)

func TestURIs(t *testing.T) {
	assert.Equal(t, "webside:/Point.st", ClassURI("Point"))
	assert.Equal(t, "webside:/Point/%2B.st", MethodURI("Point", "+"))
	assert.Equal(t, "webside:/Bag/add%3A.st", MethodURI("Bag", "add:"))

	tests := []struct {
		uri  string
		want Ref
	}{
		{"webside:/Point.st", Ref{Class: "Point"}},
		{"webside:/Point/%2B.st", Ref{Class: "Point", Selector: "+"}},
		{"webside:/Bag/at%3Aput%3A.st", Ref{Class: "Bag", Selector: "at:put:"}},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			ref, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
			assert.Equal(t, tt.uri, ref.URI())
		})
	}

	for _, bad := range []string{"file:/Point.st", "webside:/Point", "webside:/.st", "webside:/Point/.st"} {
		_, err := ParseURI(bad)
		assert.Error(t, err, bad)
	}
}

func newFS(t *testing.T) (*FileSystem, *imagesim.Server) {
	t.Helper()
	sim := imagesim.NewServer(imagesim.Sample())
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)
	return New(remote.NewClient(ts.URL, "dev")), sim
}

func TestOpenAndSaveMethod(t *testing.T) {
	fs, sim := newFS(t)
	ctx := context.Background()

	uri, err := fs.OpenMethod(ctx, "Point", "x")
	require.NoError(t, err)
	assert.Equal(t, "webside:/Point/x.st", uri)

	data, err := fs.ReadFile(uri)
	require.NoError(t, err)
	assert.Equal(t, "x\n\t^x", string(data))

	require.NoError(t, fs.WriteFile(ctx, uri, []byte("x\n\t^x ifNil: [0]")))
	m, ok := sim.Image().Method("Point", "x")
	require.True(t, ok)
	assert.Equal(t, "x\n\t^x ifNil: [0]", m.Source)
	assert.Equal(t, "accessing", m.Category, "category is kept")

	data, err = fs.ReadFile(uri)
	require.NoError(t, err)
	assert.Equal(t, "x\n\t^x ifNil: [0]", string(data))
}

func TestOpenAndSaveClass(t *testing.T) {
	fs, sim := newFS(t)
	ctx := context.Background()

	uri, err := fs.OpenClass(ctx, "Point")
	require.NoError(t, err)
	assert.Equal(t, "webside:/Point.st", uri)

	def := "Object subclass: #Point\n\tinstanceVariableNames: 'x y z'\n\tclassVariableNames: ''\n\tpackage: 'Graphics'"
	require.NoError(t, fs.WriteFile(ctx, uri, []byte(def)))
	assert.True(t, sim.Image().HasClass("Point"))

	info, err := fs.Stat(uri)
	require.NoError(t, err)
	assert.Equal(t, len(def), info.Size)
}

func TestWriteUnchangedIsNoop(t *testing.T) {
	fs, sim := newFS(t)
	ctx := context.Background()

	uri, err := fs.OpenMethod(ctx, "Point", "x")
	require.NoError(t, err)
	sim.ResetTrace()

	require.NoError(t, fs.WriteFile(ctx, uri, []byte("x\n\t^x")))
	assert.Empty(t, sim.Trace())
}

func TestWriteFailureKeepsContent(t *testing.T) {
	fs, sim := newFS(t)
	ctx := context.Background()

	uri, err := fs.OpenMethod(ctx, "Point", "x")
	require.NoError(t, err)
	sim.FailNext("POST", "/changes", 500)
	sim.FailNext("POST", "/classes/Point/methods", 500)

	err = fs.WriteFile(ctx, uri, []byte("x\n\t^nil"))
	require.Error(t, err)

	data, err := fs.ReadFile(uri)
	require.NoError(t, err)
	assert.Equal(t, "x\n\t^x", string(data))
}

type emptyBackend struct{}

func (emptyBackend) Class(ctx context.Context, name string) (*remote.Class, error) {
	return &remote.Class{Name: name}, nil
}

func (emptyBackend) Method(ctx context.Context, class, selector string, q remote.MethodQuery) (*remote.Method, error) {
	return &remote.Method{Class: class, Selector: selector}, nil
}

func (emptyBackend) DefineClass(ctx context.Context, pkg, class, definition string) error {
	return nil
}

func (emptyBackend) CompileMethod(ctx context.Context, class, selector, source, category string) error {
	return nil
}

func TestMissingTextPlaceholders(t *testing.T) {
	fs := New(emptyBackend{})
	ctx := context.Background()

	uri, err := fs.OpenClass(ctx, "Ghost")
	require.NoError(t, err)
	data, _ := fs.ReadFile(uri)
	assert.Equal(t, MissingDefinition, string(data))

	uri, err = fs.OpenMethod(ctx, "Ghost", "boo")
	require.NoError(t, err)
	data, _ = fs.ReadFile(uri)
	assert.Equal(t, MissingSource, string(data))
}

func TestOpenUnknownMethod(t *testing.T) {
	fs, _ := newFS(t)
	_, err := fs.OpenMethod(context.Background(), "Point", "missing")
	require.Error(t, err)
	assert.True(t, remote.IsNotFound(err))
	assert.Empty(t, fs.Documents())
}

func TestUnregisteredAndUnsupported(t *testing.T) {
	fs := New(emptyBackend{})

	_, err := fs.ReadFile("webside:/Nope.st")
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = fs.Stat("webside:/Nope.st")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, fs.WriteFile(context.Background(), "webside:/Nope.st", nil), ErrFileNotFound)

	assert.ErrorIs(t, fs.Delete("webside:/Nope.st"), ErrUnsupported)
	assert.ErrorIs(t, fs.Rename("webside:/A.st", "webside:/B.st"), ErrUnsupported)
	assert.ErrorIs(t, fs.CreateDirectory("webside:/A"), ErrUnsupported)
	_, err = fs.ReadDirectory("webside:/")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestDiff(t *testing.T) {
	fs := New(emptyBackend{})
	uri, err := fs.OpenMethod(context.Background(), "Ghost", "boo")
	require.NoError(t, err)

	out, err := fs.Diff(uri, []byte("boo\n\t^1"))
	require.NoError(t, err)
	assert.Contains(t, out, "-"+MissingSource+"\n")
	assert.Contains(t, out, "+boo\n")
	assert.Contains(t, out, "+\t^1\n")

	assert.Equal(t, " a\n-b\n+c\n", lineDiff("a\nb\n", "a\nc\n"))
}
