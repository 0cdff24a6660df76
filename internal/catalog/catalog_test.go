package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nafsAPI/internal/store"
	"nafsAPI/internal/store/memory"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	dims := c.Dimensions()
	require.Len(t, dims, 7)
	assert.Equal(t, "Salah", dims[0].Name)

	challenges := c.Challenges()
	require.Len(t, challenges, 3)

	durations := map[string]int{}
	for _, ch := range challenges {
		durations[*ch.Slug] = ch.Duration
		assert.Len(t, ch.Tasks, 5)
		for _, task := range ch.Tasks {
			assert.Contains(t, c.DimensionIDs(), task.DimensionID)
			assert.Equal(t, 1, task.Points)
		}
	}
	assert.Equal(t, map[string]int{
		"ramadan-readiness":    30,
		"quran-connection":     21,
		"character-excellence": 14,
	}, durations)
}

func TestIDsAreDeterministic(t *testing.T) {
	a := Default()
	b := Default()

	assert.Equal(t, a.DimensionIDs(), b.DimensionIDs())
	assert.Equal(t, a.Challenges()[0].ID, b.Challenges()[0].ID)
	assert.Equal(t, ChallengeID("quran-connection"), a.Challenges()[1].ID)
	assert.Equal(t, DimensionID("quran"), DimensionID("Quran"))
	assert.NotEqual(t, TaskID("a", "x"), TaskID("b", "x"))
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "   "},
		{"no dimensions", "challenges: []"},
		{"duplicate dimension", "dimensions:\n  - name: A\n  - name: a\n"},
		{"unknown dimension", `
dimensions:
  - name: A
challenges:
  - slug: x
    name: X
    duration: 3
    tasks:
      - name: t
        dimension: B
`},
		{"zero duration", `
dimensions:
  - name: A
challenges:
  - slug: x
    name: X
    duration: 0
    tasks:
      - name: t
        dimension: A
`},
		{"no tasks", `
dimensions:
  - name: A
challenges:
  - slug: x
    name: X
    duration: 3
`},
		{"duplicate slug", `
dimensions:
  - name: A
challenges:
  - slug: x
    name: X
    duration: 3
    tasks:
      - name: t
        dimension: A
  - slug: x
    name: Y
    duration: 3
    tasks:
      - name: t
        dimension: A
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
dimensions:
  - name: Focus
challenges:
  - slug: deep-work
    name: Deep Work
    duration: 3
    tasks:
      - name: One focused hour
        dimension: Focus
        points: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Challenges(), 1)
	assert.Equal(t, 2, c.Challenges()[0].Tasks[0].Points)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := Default()

	require.NoError(t, c.Seed(ctx, s))
	require.NoError(t, c.Seed(ctx, s))

	err := s.WithTx(ctx, func(tx store.Tx) error {
		dims, err := tx.ListDimensions(ctx)
		require.NoError(t, err)
		assert.Len(t, dims, 7)

		templates, err := tx.ListPredefinedChallenges(ctx)
		require.NoError(t, err)
		assert.Len(t, templates, 3)

		got, err := tx.GetChallenge(ctx, ChallengeID("ramadan-readiness"))
		require.NoError(t, err)
		assert.Equal(t, "Fasting Monday & Thursday", got.Tasks[0].Name)
		return nil
	})
	require.NoError(t, err)
}
