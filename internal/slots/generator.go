package slots

import "fmt"

// SlotGranularityMinutes is the fixed slot step; there is no admin
// override for it.
const SlotGranularityMinutes = 30

// TimeSlot is one candidate pickup time on a date.
type TimeSlot struct {
	Time      string `json:"time"` // "HH:MM"
	Available bool   `json:"available"`
}

// Generate produces the ordered candidate slots for a window at a
// 30-minute step over the half-open range [StartHour:00, EndHour:00).
// Hours inside an enabled lunch break are skipped entirely. An empty
// window yields an empty list, which callers present as "no slots
// today" rather than an error.
func Generate(window OperatingWindow) []TimeSlot {
	slots := []TimeSlot{}
	for hour := window.StartHour; hour < window.EndHour; hour++ {
		if window.LunchBreak.Enabled && hour >= window.LunchBreak.StartHour && hour < window.LunchBreak.EndHour {
			continue
		}
		slots = append(slots,
			TimeSlot{Time: fmt.Sprintf("%02d:00", hour), Available: true},
			TimeSlot{Time: fmt.Sprintf("%02d:30", hour), Available: true},
		)
	}
	return slots
}
