package metrics

import "icsfix/internal/model"

// ObserveResult records a successful generation.
func ObserveResult(caller string, res model.Result) {
	Generations.WithLabelValues(caller, OutcomeOK).Inc()
	EventsEmitted.Add(float64(res.Blocks * res.Occurrences))
	for _, d := range res.Diagnostics {
		field := d.Field
		if field == "" {
			field = "document"
		}
		Diagnostics.WithLabelValues(field).Inc()
	}
}

// ObserveFailure records a generation that produced no result.
func ObserveFailure(caller, outcome string) {
	Generations.WithLabelValues(caller, outcome).Inc()
}
