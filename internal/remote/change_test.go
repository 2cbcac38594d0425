package remote

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoamaral/VSCside/internal/imagesim"
)

func TestChangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		change  Change
		wantErr bool
	}{
		{"add package", Change{Type: AddPackage, Package: "Net"}, false},
		{"add package without name", Change{Type: AddPackage}, true},
		{"add class", Change{Type: AddClass, ClassName: "Foo", Definition: "Object subclass: #Foo"}, false},
		{"add class without definition", Change{Type: AddClass, ClassName: "Foo"}, true},
		{"add method", Change{Type: AddMethod, ClassName: "Foo", SourceCode: "bar ^1"}, false},
		{"rename method without new selector", Change{Type: RenameMethod, ClassName: "Foo", Selector: "bar"}, true},
		{"classify method", Change{Type: ClassifyMethod, ClassName: "Foo", Selector: "bar", Category: "x"}, false},
		{"rename ivar", Change{Type: RenameInstVar, ClassName: "Foo", Variable: "a", NewName: "b"}, false},
		{"rename category without new name", Change{Type: RenameCategory, ClassName: "Foo", Category: "a"}, true},
		{"unknown", Change{Type: "Bogus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.change.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmitChange(t *testing.T) {
	sim, ts := newSim(t)

	var applied []*Change
	c := NewClient(ts.URL, "alice", WithChangeReporter(func(ch *Change) { applied = append(applied, ch) }))

	ch := &Change{Type: AddPackage, Package: "Net"}
	got, err := c.SubmitChange(context.Background(), ch)
	require.NoError(t, err)

	assert.Equal(t, "alice", got.Author)
	assert.NotEmpty(t, got.ID, "echoed change carries the backend id")
	assert.Empty(t, ch.Author, "caller's change is not modified")
	require.Len(t, applied, 1)
	assert.Equal(t, got, applied[0])

	assert.True(t, sim.Image().HasPackage("Net"))
	assert.Equal(t, 1, sim.Count(http.MethodPost, "/changes"))
}

func TestSubmitChange_Unsupported(t *testing.T) {
	sim, ts := newSim(t, imagesim.WithChanges(false))

	var reported []error
	reporterCalls := 0
	c := NewClient(ts.URL, "alice",
		WithErrorReporter(func(err error) { reported = append(reported, err) }),
		WithChangeReporter(func(*Change) { reporterCalls++ }),
	)

	_, err := c.SubmitChange(context.Background(), &Change{Type: AddPackage, Package: "Net"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChangesUnsupported))
	assert.Contains(t, err.Error(), "Changes not supported")
	assert.Zero(t, reporterCalls)
	assert.Empty(t, reported)
	assert.Zero(t, sim.Count(http.MethodPost, "/changes"))
}

func TestSubmitChange_NoAuthor(t *testing.T) {
	sim, ts := newSim(t)
	c := NewClient(ts.URL, "")

	_, err := c.SubmitChange(context.Background(), &Change{Type: AddPackage, Package: "Net"})
	assert.ErrorIs(t, err, ErrNoAuthor)
	assert.Zero(t, sim.Count(http.MethodPost, "/changes"))
}

func TestSubmitChange_Invalid(t *testing.T) {
	sim, ts := newSim(t)
	c := NewClient(ts.URL, "alice")

	_, err := c.SubmitChange(context.Background(), &Change{Type: RemoveMethod, ClassName: "Point"})
	require.Error(t, err)
	assert.Zero(t, sim.Count(http.MethodPost, "/changes"))
}

func TestLastChanges(t *testing.T) {
	_, ts := newSim(t)
	c := NewClient(ts.URL, "alice")
	ctx := context.Background()

	require.NoError(t, c.AddPackage(ctx, "Net"))
	require.NoError(t, c.CompileMethod(ctx, "Point", "", "y\n\t^y", "accessing"))

	changes, err := c.LastChanges(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, AddPackage, changes[0].Type)
	assert.Equal(t, AddMethod, changes[1].Type)
	assert.Equal(t, "alice", changes[1].Author)
}
