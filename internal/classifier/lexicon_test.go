package classifier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/cipherroom/internal/testutil"
)

// fakeStorage implements model.ObjectStorage in memory.
type fakeStorage struct {
	objects     map[string][]byte
	downloadErr error
	existsErr   error
	uploadErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(_ context.Context, key string, reader io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.objects[key]
	return ok, nil
}

func TestParseLexicon(t *testing.T) {
	t.Parallel()

	lex, err := ParseLexicon(bytes.NewReader(DefaultLexicon()))
	require.NoError(t, err)
	assert.Equal(t, 1, lex.Version)
	labels := make([]string, 0, len(lex.Categories))
	for _, c := range lex.Categories {
		labels = append(labels, c.Label)
	}
	assert.ElementsMatch(t, DefaultCategories, labels)

	invalid := []string{
		"version: 1\ncategories: []\n",
		"version: 1\ncategories:\n  - terms: [{term: a, weight: 0.5}]\n",
		"version: 1\ncategories:\n  - label: x\n    terms: [{term: a, weight: 1.5}]\n",
		"version: 1\ncategories:\n  - label: x\n    terms: [{term: '  ', weight: 0.5}]\n",
		"{not yaml",
	}
	for _, src := range invalid {
		_, err := ParseLexicon(strings.NewReader(src))
		assert.Error(t, err, src)
	}
}

func TestLexiconModel_Classify(t *testing.T) {
	t.Parallel()

	lex, err := ParseLexicon(bytes.NewReader(DefaultLexicon()))
	require.NoError(t, err)
	m, err := compileLexicon(lex, DefaultCategories)
	require.NoError(t, err)

	results, err := m.Classify(context.Background(), []string{
		"good morning everyone",
		"You MORON!!",
		"stupid idiot",
		"idiotic",
		"I will kill you.",
	})
	require.NoError(t, err)
	require.Len(t, results, len(DefaultCategories))

	scores := map[string][]float64{}
	for i, r := range results {
		assert.Equal(t, DefaultCategories[i], r.Label)
		scores[r.Label] = r.Scores
	}

	for _, s := range results {
		assert.Zero(t, s.Scores[0], s.Label)
	}
	assert.InDelta(t, 0.92, scores["insult"][1], 1e-9)
	assert.InDelta(t, 0.97, scores["insult"][2], 1e-9)
	assert.Zero(t, scores["insult"][3])
	assert.Greater(t, scores["threat"][4], 0.99)
}

func TestLexiconModel_CategoryFilter(t *testing.T) {
	t.Parallel()

	lex, err := ParseLexicon(bytes.NewReader(DefaultLexicon()))
	require.NoError(t, err)

	m, err := compileLexicon(lex, []string{"threat", "unknown", "insult"})
	require.NoError(t, err)
	require.Len(t, m.categories, 2)
	assert.Equal(t, "threat", m.categories[0].label)
	assert.Equal(t, "insult", m.categories[1].label)

	_, err = compileLexicon(lex, []string{"unknown"})
	assert.Error(t, err)
}

func TestLexiconRuntime_Load(t *testing.T) {
	t.Parallel()

	storage := newFakeStorage()
	rt := NewLexiconRuntime(storage, "models/lexicon.yaml")

	_, err := rt.Load(context.Background(), DefaultThreshold, DefaultCategories)
	require.Error(t, err)

	uploaded, err := SeedLexicon(context.Background(), storage, "models/lexicon.yaml")
	require.NoError(t, err)
	assert.True(t, uploaded)

	uploaded, err = SeedLexicon(context.Background(), storage, "models/lexicon.yaml")
	require.NoError(t, err)
	assert.False(t, uploaded)

	m, err := rt.Load(context.Background(), DefaultThreshold, DefaultCategories)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestSeedLexicon_Errors(t *testing.T) {
	t.Parallel()

	storage := newFakeStorage()
	storage.existsErr = errors.New("stat failed")
	_, err := SeedLexicon(context.Background(), storage, "k")
	require.Error(t, err)

	storage = newFakeStorage()
	storage.uploadErr = errors.New("put failed")
	_, err = SeedLexicon(context.Background(), storage, "k")
	require.Error(t, err)
}

func TestAdapter_WithLexiconRuntime(t *testing.T) {
	t.Parallel()

	storage := newFakeStorage()
	_, err := SeedLexicon(context.Background(), storage, "lexicon.yaml")
	require.NoError(t, err)

	a := New(NewLexiconRuntime(storage, "lexicon.yaml"), testutil.MakeNoopLogger())
	a.Load(context.Background())
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("classifier did not finish loading")
	}
	require.Equal(t, StateReady, a.State())

	v := a.Classify(context.Background(), "watch your back, moron")
	assert.True(t, v.Flagged)
	assert.Equal(t, "insult", v.Label)

	assert.False(t, a.Classify(context.Background(), "see you tomorrow").Flagged)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello world", normalize("  Hello,   WORLD!! "))
	assert.Equal(t, "don't stop", normalize("Don't... stop"))
	assert.Equal(t, "", normalize("?!"))
}
