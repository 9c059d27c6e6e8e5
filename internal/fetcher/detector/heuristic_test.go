package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

func TestHeuristicShouldPromote(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	cases := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "empty body", status: 200, body: "  ", want: true},
		{name: "spa marker", status: 200, body: `<div id="__next"></div>`, want: true},
		{name: "spa marker any case", status: 200, body: `<DIV ID="APP"></DIV>`, want: true},
		{name: "script density", status: 200, body: `<html><script>var a=1;</script><p>t</p></html>`, want: true},
		{name: "unclosed script", status: 200, body: `<p>x</p><script>var a=1;`, want: true},
		{name: "server rendered product", status: 200, body: `<meta property="og:title" content="x"><div id="app"></div>`, want: false},
		{name: "plain page", status: 200, body: "<html><h1>장미 꽃다발</h1><p>" + strings.Repeat("설명 ", 50) + "</p></html>", want: false},
		{name: "non 200", status: 404, body: "", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, h.ShouldPromote(sourcing.FetchResponse{StatusCode: tc.status, Body: []byte(tc.body)}))
		})
	}
}

func TestNewHeuristicDefaultThreshold(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultBodyThreshold, NewHeuristic(0).BodyLengthThreshold)
}
