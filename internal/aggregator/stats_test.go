package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeGroupsByHostname(t *testing.T) {
	snapshot := []Stat{
		{Hostname: "mirror.example", Sent: 10, Received: 1000, TotalSent: 100, TotalReceived: 5000},
		{Hostname: "mirror.example", Sent: 20, Received: 3000, TotalSent: 200, TotalReceived: 7000},
		{Hostname: "api.example", Sent: 5, Received: 50, TotalSent: 5, TotalReceived: 50},
	}

	groups := Summarize(snapshot)
	require.Len(t, groups, 2)

	assert.Equal(t, Group{
		Hostname:      "mirror.example",
		Conns:         2,
		Sent:          30,
		Received:      4000,
		TotalSent:     300,
		TotalReceived: 12000,
	}, groups[0])
	assert.Equal(t, "api.example", groups[1].Hostname)
	assert.Equal(t, 1, groups[1].Conns)
}

func TestSummarizeSortsByReceived(t *testing.T) {
	snapshot := []Stat{
		{Hostname: "c.example", Received: 10},
		{Hostname: "a.example", Received: 500},
		{Hostname: "b.example", Received: 10},
		{Hostname: "d.example", Received: 9000},
	}

	groups := Summarize(snapshot)
	var names []string
	for _, g := range groups {
		names = append(names, g.Hostname)
	}
	assert.Equal(t, []string{"d.example", "a.example", "b.example", "c.example"}, names)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}

func TestTotals(t *testing.T) {
	total := Totals([]Group{
		{Conns: 2, Sent: 1, Received: 2, TotalSent: 3, TotalReceived: 4},
		{Conns: 1, Sent: 10, Received: 20, TotalSent: 30, TotalReceived: 40},
	})
	assert.Equal(t, Group{Conns: 3, Sent: 11, Received: 22, TotalSent: 33, TotalReceived: 44}, total)
}

func TestSortModeLess(t *testing.T) {
	a := Group{Conns: 1, Sent: 100, Received: 1, TotalSent: 1, TotalReceived: 1}
	b := Group{Conns: 3, Sent: 1, Received: 100, TotalSent: 500, TotalReceived: 500}

	assert.True(t, SortByReceived.Less(b, a))
	assert.True(t, SortBySent.Less(a, b))
	assert.True(t, SortByTotal.Less(b, a))
	assert.True(t, SortByConns.Less(b, a))
	assert.Equal(t, "Down", SortByReceived.String())
}
