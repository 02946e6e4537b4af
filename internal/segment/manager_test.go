package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesRange(t *testing.T) {
	s, err := New("Verse 1", 30*time.Second, 45*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, s.Duration())
	assert.True(t, s.Contains(30*time.Second))
	assert.False(t, s.Contains(45*time.Second))

	_, err = New("zero", 10*time.Second, 10*time.Second)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New("inverted", 20*time.Second, 10*time.Second)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New("negative", -time.Second, 10*time.Second)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBoundsHaveMillisecondResolution(t *testing.T) {
	// Смещения из декодера кратны периоду сэмпла, а не миллисекунде
	sample := time.Second / 44100

	s, err := New("riff", 30*time.Second+sample, 45*time.Second+sample)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.Start)
	assert.Equal(t, 45*time.Second, s.End)

	// Отрезок короче миллисекунды после округления становится пустым и отклоняется
	_, err = New("tiny", 30*time.Second+sample, 30*time.Second+700*time.Microsecond)
	assert.ErrorIs(t, err, ErrInvalidRange)

	m := NewManager()
	_, err = m.Add(Segment{Name: "tiny", Start: 30*time.Second + sample, End: 30*time.Second + 700*time.Microsecond})
	assert.ErrorIs(t, err, ErrInvalidRange)

	id, err := m.Add(Segment{Name: "ok", Start: 30*time.Second + sample, End: 30*time.Second + 1722*time.Microsecond})
	require.NoError(t, err)
	got, _ := m.Get(id)
	assert.Equal(t, 30*time.Second, got.Start)
	assert.Equal(t, 30*time.Second+time.Millisecond, got.End)

	require.NoError(t, m.Update(id, time.Second+sample, 2*time.Second+sample))
	got, _ = m.Get(id)
	assert.Equal(t, time.Second, got.Start)
	assert.Equal(t, 2*time.Second, got.End)
}

func TestAddAssignsIDAndKeepsOrder(t *testing.T) {
	m := NewManager()

	id1, err := m.Add(Segment{Name: "Intro", Start: 0, End: 10 * time.Second})
	require.NoError(t, err)
	id2, err := m.Add(Segment{Name: "Chorus", Start: 60 * time.Second, End: 90 * time.Second})
	require.NoError(t, err)
	id3, err := m.Add(Segment{Name: "Verse", Start: 20 * time.Second, End: 40 * time.Second})
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{id1, id2, id3}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "Chorus", list[1].Name)
}

func TestAddRejectsInvalidRange(t *testing.T) {
	m := NewManager()

	_, err := m.Add(Segment{Name: "bad", Start: 5 * time.Second, End: time.Second})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, 0, m.Len())
}

func TestAddRejectsDuplicate(t *testing.T) {
	m := NewManager()

	_, err := m.Add(Segment{Name: "Solo", Start: time.Second, End: 2 * time.Second})
	require.NoError(t, err)

	_, err = m.Add(Segment{Name: "Solo", Start: time.Second, End: 2 * time.Second})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Тот же диапазон под другим именем допустим
	_, err = m.Add(Segment{Name: "Solo take 2", Start: time.Second, End: 2 * time.Second})
	assert.NoError(t, err)

	// То же имя с другим диапазоном допустимо
	_, err = m.Add(Segment{Name: "Solo", Start: time.Second, End: 3 * time.Second})
	assert.NoError(t, err)

	assert.Equal(t, 3, m.Len())
}

func TestAddDefaultName(t *testing.T) {
	m := NewManager()

	id, err := m.Add(Segment{Start: 0, End: time.Second})
	require.NoError(t, err)

	s, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Segment 1", s.Name)
}

func TestAddKeepsPersistedID(t *testing.T) {
	m := NewManager()

	id, err := m.Add(Segment{ID: "fixed-id", Name: "A", Start: 0, End: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	// Повторный ID заменяется новым
	id2, err := m.Add(Segment{ID: "fixed-id", Name: "B", Start: 0, End: time.Second})
	require.NoError(t, err)
	assert.NotEqual(t, "fixed-id", id2)
}

func TestRemoveIsIdempotent(t *testing.T) {
	m := NewManager()
	id, err := m.Add(Segment{Name: "A", Start: 0, End: time.Second})
	require.NoError(t, err)

	m.Remove("missing")
	assert.Equal(t, 1, m.Len())

	m.Remove(id)
	m.Remove(id)
	assert.Equal(t, 0, m.Len())
}

func TestFindByName(t *testing.T) {
	m := NewManager()
	_, _ = m.Add(Segment{Name: "Bridge", Start: 0, End: time.Second})
	_, _ = m.Add(Segment{Name: "Bridge", Start: 5 * time.Second, End: 6 * time.Second})

	s, ok := m.FindByName("Bridge")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), s.Start)

	_, ok = m.FindByName("Outro")
	assert.False(t, ok)
}

func TestRenameAndUpdate(t *testing.T) {
	m := NewManager()
	id, _ := m.Add(Segment{Name: "A", Start: 0, End: time.Second})
	_, _ = m.Add(Segment{Name: "B", Start: 0, End: time.Second})

	require.NoError(t, m.Rename(id, "Intro"))
	s, _ := m.Get(id)
	assert.Equal(t, "Intro", s.Name)

	assert.ErrorIs(t, m.Rename(id, "B"), ErrDuplicate)
	assert.ErrorIs(t, m.Rename("missing", "X"), ErrNotFound)

	require.NoError(t, m.Update(id, 2*time.Second, 4*time.Second))
	s, _ = m.Get(id)
	assert.Equal(t, 2*time.Second, s.Start)
	assert.Equal(t, 4*time.Second, s.End)

	err := m.Update(id, 4*time.Second, 4*time.Second)
	assert.ErrorIs(t, err, ErrInvalidRange)
	s, _ = m.Get(id)
	assert.Equal(t, 2*time.Second, s.Start, "неудачное обновление не должно менять отрезок")
}

func TestListReturnsCopy(t *testing.T) {
	m := NewManager()
	_, _ = m.Add(Segment{Name: "A", Start: 0, End: time.Second})

	list := m.List()
	list[0].Name = "changed"

	s, _ := m.FindByName("A")
	assert.Equal(t, "A", s.Name)
}

func TestClearAndReplace(t *testing.T) {
	m := NewManager()
	_, _ = m.Add(Segment{Name: "A", Start: 0, End: time.Second})
	m.Clear()
	assert.Equal(t, 0, m.Len())

	rejected := m.Replace([]Segment{
		{ID: "1", Name: "ok", Start: 0, End: time.Second},
		{ID: "2", Name: "bad", Start: time.Second, End: 0},
		{ID: "3", Name: "ok", Start: 0, End: time.Second},
	})
	assert.Len(t, rejected, 2)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].ID)
}
