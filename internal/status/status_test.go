package status

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromAlertStatus(t *testing.T) {
	require.Equal(t, MajorOutage, FromAlertStatus("firing"))
	require.Equal(t, Operational, FromAlertStatus("resolved"))
}

// Unrecognized statuses fail open. This is the observed behaviour of the
// daemon this replaces and is kept on purpose; see DESIGN.md.
func TestFromAlertStatusDefaultsToOperational(t *testing.T) {
	for _, in := range []string{"", "pending", "FIRING", "Firing", "resolved ", "suppressed"} {
		require.Equal(t, Operational, FromAlertStatus(in), "input %q", in)
	}
}

func TestFromProbeResult(t *testing.T) {
	for code := -1; code <= 600; code++ {
		want := MajorOutage
		if code >= 200 && code <= 299 {
			want = Operational
		}
		if got := FromProbeResult(code, nil); got != want {
			t.Fatalf("code %d: expected %s, got %s", code, want, got)
		}
	}
}

func TestFromProbeResultFailureMatchesOutOfRangeCode(t *testing.T) {
	failed := FromProbeResult(0, errors.New("dial tcp: i/o timeout"))
	require.Equal(t, FromProbeResult(503, nil), failed)
	require.Equal(t, MajorOutage, FromProbeResult(200, errors.New("read body")))
}

func TestParse(t *testing.T) {
	cases := map[string]Status{
		"major_outage":       MajorOutage,
		"Major-Outage":       MajorOutage,
		"majoroutage":        MajorOutage,
		"4":                  MajorOutage,
		"operational":        Operational,
		"performance issues": PerformanceIssues,
		"0":                  Unknown,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := Parse("sideways")
	require.Error(t, err)
}

func TestString(t *testing.T) {
	require.Equal(t, "partial_outage", PartialOutage.String())
	require.Equal(t, "status(9)", Status(9).String())
	require.False(t, Status(9).Valid())
}

func TestUnmarshalJSONAcceptsNumberAndString(t *testing.T) {
	var payload struct {
		A Status `json:"a"`
		B Status `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":4,"b":"1"}`), &payload))
	require.Equal(t, MajorOutage, payload.A)
	require.Equal(t, Operational, payload.B)
	require.Error(t, json.Unmarshal([]byte(`{"a":"down"}`), &payload))
}
