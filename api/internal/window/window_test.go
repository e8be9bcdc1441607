package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 20, hour, 30, 0, 0, time.Local)
}

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		hour int
		want Segment
	}{
		{6, Morning},
		{11, Morning},
		{12, Afternoon},
		{15, Afternoon},
		{16, Evening},
		{21, Evening},
		{22, Night},
		{23, Night},
		{0, Night},
		{5, Night},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(at(c.hour)), "hour %d", c.hour)
	}
}

func TestClassify_PartitionsTheDay(t *testing.T) {
	// Every hour maps to exactly one of the four segments.
	counts := map[Segment]int{}
	for h := 0; h < 24; h++ {
		s := Classify(at(h))
		switch s {
		case Morning, Afternoon, Evening, Night:
			counts[s]++
		default:
			t.Fatalf("hour %d classified as unknown segment %q", h, s)
		}
	}
	assert.Equal(t, 6, counts[Morning])
	assert.Equal(t, 4, counts[Afternoon])
	assert.Equal(t, 6, counts[Evening])
	assert.Equal(t, 8, counts[Night])
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Morning, Normalize(" Morning"))
	assert.Equal(t, Night, Normalize("NIGHT "))
	assert.Equal(t, Segment("anytime"), Normalize("Anytime"))
}
