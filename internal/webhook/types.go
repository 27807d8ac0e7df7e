package webhook

// Payload is the subset of the Alertmanager webhook body the reconciler reads.
type Payload struct {
	Receiver string  `json:"receiver"`
	Status   string  `json:"status"`
	Alerts   []Alert `json:"alerts"`
}

type Alert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    string            `json:"startsAt,omitempty"`
	EndsAt      string            `json:"endsAt,omitempty"`
}

// Plugin is the label that names the affected component.
func (a Alert) Plugin() string {
	return a.Labels["plugin"]
}
