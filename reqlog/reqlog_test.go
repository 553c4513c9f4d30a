package reqlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_FillsIDAndTime(t *testing.T) {
	l := New(3)
	e := l.Record(Entry{Method: "GET", URL: "/books", Status: 200})

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, []Entry{e}, l.List())
}

func TestRecord_EvictsOldest(t *testing.T) {
	l := New(3)
	for i := range 5 {
		l.Record(Entry{URL: fmt.Sprintf("/r%d", i)})
	}

	entries := l.List()
	require.Len(t, entries, 3)
	assert.Equal(t, "/r2", entries[0].URL)
	assert.Equal(t, "/r4", entries[2].URL)
	assert.Equal(t, 3, l.Len())
}

func TestRecord_QuotesNonJSONBodies(t *testing.T) {
	l := New(2)
	e := l.Record(Entry{Body: json.RawMessage("{not json"), Response: json.RawMessage(`{"ok":true}`)})

	var body string
	require.NoError(t, json.Unmarshal(e.Body, &body))
	assert.Equal(t, "{not json", body)
	assert.JSONEq(t, `{"ok":true}`, string(e.Response))
}

func TestClear(t *testing.T) {
	l := New(2)
	l.Record(Entry{})
	l.Record(Entry{})
	l.Record(Entry{})
	l.Clear()

	assert.Empty(t, l.List())
	assert.Zero(t, l.Len())
}

func TestRecord_Concurrent(t *testing.T) {
	l := New(100)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				l.Record(Entry{Method: "GET"})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, l.Len())
}
