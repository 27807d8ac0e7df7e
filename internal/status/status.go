package status

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the component status code understood by Cachet.
type Status int

const (
	Unknown           Status = 0
	Operational       Status = 1
	PerformanceIssues Status = 2
	PartialOutage     Status = 3
	MajorOutage       Status = 4
)

var names = map[Status]string{
	Unknown:           "unknown",
	Operational:       "operational",
	PerformanceIssues: "performance_issues",
	PartialOutage:     "partial_outage",
	MajorOutage:       "major_outage",
}

func (s Status) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) Valid() bool {
	_, ok := names[s]
	return ok
}

// Parse accepts a status name ("major_outage", "major-outage", "MajorOutage") or its code.
func Parse(value string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for s, name := range names {
		if key == name || key == strings.ReplaceAll(name, "_", "") || key == strconv.Itoa(int(s)) {
			return s, nil
		}
	}
	return Unknown, fmt.Errorf("unknown status %q", value)
}

const (
	AlertFiring   = "firing"
	AlertResolved = "resolved"
)

// FromAlertStatus maps an Alertmanager alert status to a component status.
// Anything that is not "firing" is treated as Operational, including values
// Alertmanager does not send today.
func FromAlertStatus(alertStatus string) Status {
	switch alertStatus {
	case AlertFiring:
		return MajorOutage
	case AlertResolved:
		return Operational
	default:
		return Operational
	}
}

// FromProbeResult maps a probe outcome to a component status. A probe that
// failed before producing a response (err != nil) is a MajorOutage, the same
// as any code outside 2xx.
func FromProbeResult(code int, err error) Status {
	if err != nil {
		return MajorOutage
	}
	if code >= 200 && code <= 299 {
		return Operational
	}
	return MajorOutage
}

// UnmarshalJSON accepts both 4 and "4"; Cachet versions differ in how they
// serialize the status column.
func (s *Status) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*s = Unknown
		return nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid status %s", data)
	}
	*s = Status(code)
	return nil
}
