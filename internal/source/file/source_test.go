package file

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

const quarterYAML = `
name: Q1
columns:
  - field: Region
    type: string
  - field: Sales
    type: float
  - field: Units
    type: integer
  - field: Day
    type: date
rows:
  - [East, 1500, 12, "2024-01-15"]
  - [West, 900.5, null, "2024-01-16"]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDecode(t *testing.T) {
	snap, err := Decode([]byte(quarterYAML))
	require.NoError(t, err)

	assert.Equal(t, "Q1", snap.Name)
	assert.Equal(t, []core.Column{
		{FieldName: "Region", DataType: core.TypeString},
		{FieldName: "Sales", DataType: core.TypeFloat},
		{FieldName: "Units", DataType: core.TypeInt},
		{FieldName: "Day", DataType: core.TypeDate},
	}, snap.Columns)
	require.Len(t, snap.Rows, 2)

	first := snap.Rows[0]
	assert.Equal(t, core.Cell{Raw: "East", Display: "East"}, first[0])
	assert.Equal(t, core.Cell{Raw: 1500.0, Display: "1,500"}, first[1])
	assert.Equal(t, core.Cell{Raw: int64(12), Display: "12"}, first[2])
	assert.Equal(t, "2024-01-15", first[3].Display)
	assert.IsType(t, time.Time{}, first[3].Raw)

	assert.Equal(t, core.Cell{Raw: nil, Display: core.NullDisplay}, snap.Rows[1][2])
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"ragged row":    "columns: [{field: A, type: int}]\nrows: [[1, 2]]\n",
		"missing field": "columns: [{type: int}]\n",
		"bad yaml":      "columns: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSource_NameOverride(t *testing.T) {
	path := writeFile(t, quarterYAML)

	snap, err := NewSource(path, "").FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Q1", snap.Name)

	snap, err = NewSource(path, "Budget").FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Budget", snap.Name)
}

func TestSource_MissingFile(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope.yaml"), "").FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type chanNotifier chan core.ChangeSignal

func (c chanNotifier) Notify(ctx context.Context, sig core.ChangeSignal) error {
	select {
	case c <- sig:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestWatcher_EmitsOnChange(t *testing.T) {
	path := writeFile(t, quarterYAML)
	clock := clockwork.NewFakeClock()
	signals := make(chanNotifier, 4)

	w := NewWatcher(path, time.Second, signals, clock, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	clock.Advance(time.Second)

	select {
	case sig := <-signals:
		assert.Equal(t, core.ChangeSignal{Kind: core.DataSourceChanged}, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("no signal after modification")
	}

	require.NoError(t, os.Remove(path))
	clock.Advance(time.Second)

	select {
	case sig := <-signals:
		assert.Equal(t, core.DataSourceChanged, sig.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no signal after removal")
	}
}
