package dashboard

import (
	"fmt"
	"strings"

	"github.com/i474232898/weatherornot/internal/session"
)

// Render writes the full dashboard for st.
func (d *Dashboard) Render(st session.State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	b.WriteString("\n== WeatherOrNot ==\n")

	switch {
	case st.Selection == "":
		b.WriteString("Search a city to add it to your dashboard.\n")
	case st.Status == session.StatusLoading:
		fmt.Fprintf(&b, "%s: loading weather...\n", st.Selection)
	case st.Status == session.StatusError:
		fmt.Fprintf(&b, "%s: error: %s\n", st.Selection, st.Error)
	case st.Weather != nil:
		w := st.Weather
		place := w.City
		if place == "" {
			place = st.Selection
		}
		fmt.Fprintf(&b, "%s: %.0f°F, %s\n", place, w.Temperature, d.title.String(w.Description))
		fmt.Fprintf(&b, "  Humidity %.0f%%  Wind %.1f mph\n", w.Humidity, w.WindSpeed)
	default:
		fmt.Fprintf(&b, "%s\n", st.Selection)
	}

	fmt.Fprintf(&b, "\nSaved Locations (%d)\n", len(st.Saved))
	if len(st.Saved) == 0 {
		b.WriteString("  No saved locations.\n")
	}
	for i, name := range st.Saved {
		marker := " "
		if name == st.Selection {
			marker = ">"
		}
		fmt.Fprintf(&b, " %s %d. %s\n", marker, i+1, name)
	}

	if st.SyncWarning != "" {
		fmt.Fprintf(&b, "\n(sync warning: %s)\n", st.SyncWarning)
	}

	fmt.Fprint(d.out, b.String())
}
