package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID_UniqueAndIndependentOfTime(t *testing.T) {
	g := UUID{}
	ts := time.Unix(1_700_000_000, 0)
	seen := make(map[string]struct{})
	for range 1000 {
		id := g.New(ts)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate identity %s", id)
		seen[id] = struct{}{}
	}
}

func TestTimestamp_SameInstantNoCollision(t *testing.T) {
	g := Timestamp{Layout: "200601021504"}
	ts := time.Date(2021, 5, 4, 13, 37, 0, 0, time.UTC)
	a, b := g.New(ts), g.New(ts)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "202105041337-"), a)
	assert.Len(t, a, len("202105041337-")+8)
}

func TestFromScheme(t *testing.T) {
	g, err := FromScheme("", "")
	require.NoError(t, err)
	assert.IsType(t, UUID{}, g)

	g, err = FromScheme(SchemeTimestamp, "20060102")
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Layout: "20060102"}, g)

	_, err = FromScheme(SchemeTimestamp, "")
	assert.Error(t, err)
	_, err = FromScheme("sha1", "")
	assert.Error(t, err)
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func(time.Time) string { return "fixed" })
	assert.Equal(t, "fixed", g.New(time.Time{}))
}

func TestLayoutFromStrftime(t *testing.T) {
	created := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	cases := map[string]string{
		"%Y%m%d%H%M":        "202103040506",
		"%Y-%m-%d %H:%M:%S": "2021-03-04 05:06:07",
		"%y%j":              "21063",
		"%H%%":              "05%",
	}
	for in, want := range cases {
		assert.Equal(t, want, created.Format(LayoutFromStrftime(in)), in)
	}
}
