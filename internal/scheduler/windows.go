package scheduler

import "time"

// Window math. Each condition holds for exactly one tick-interval-wide
// minute window, so with the tick interval dividing 60 evenly every window
// fires once per qualifying hour. There is no persisted "already ran"
// flag; the narrowness of the window is the idempotency.

func inDailyWindow(now time.Time, checkInHour, widthMin int) bool {
	return now.Hour() == checkInHour && now.Minute() < widthMin
}

// inResinWindow holds every second hour, offset from the check-in hour by
// exactly one, so the resin sweep and the check-in sweep can never land on
// the same tick.
func inResinWindow(now time.Time, checkInHour, widthMin int) bool {
	diff := now.Hour() - checkInHour
	if diff < 0 {
		diff = -diff
	}
	return diff%2 == 1 && now.Minute() < widthMin
}

func inMaintenanceWindow(now time.Time, maintenanceHour, widthMin int) bool {
	return now.Hour() == maintenanceHour && now.Minute() < widthMin
}
