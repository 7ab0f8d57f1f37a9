package scheduler

import (
	"testing"
	"time"
)

// Simulate a full day at one-minute resolution and check the windows
// against their definitions: the daily window is exactly one interval wide,
// the resin window covers every second hour, and the two never coincide.
func TestWindowsOverFullDay(t *testing.T) {
	const checkInHour, maintenanceHour, width = 8, 1, 10

	dailyMinutes := 0
	resinMinutes := 0
	maintenanceMinutes := 0
	for minuteOfDay := 0; minuteOfDay < 24*60; minuteOfDay++ {
		now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).
			Add(time.Duration(minuteOfDay) * time.Minute)

		daily := inDailyWindow(now, checkInHour, width)
		resin := inResinWindow(now, checkInHour, width)
		if daily && resin {
			t.Fatalf("daily and resin windows coincide at %v", now)
		}
		if daily {
			dailyMinutes++
			if now.Hour() != checkInHour || now.Minute() >= width {
				t.Errorf("daily window open outside its definition at %v", now)
			}
		}
		if resin {
			resinMinutes++
		}
		if inMaintenanceWindow(now, maintenanceHour, width) {
			maintenanceMinutes++
		}
	}

	if dailyMinutes != width {
		t.Errorf("daily window open %d minutes, want %d", dailyMinutes, width)
	}
	// Twelve qualifying hours, one interval-wide window in each.
	if resinMinutes != 12*width {
		t.Errorf("resin window open %d minutes, want %d", resinMinutes, 12*width)
	}
	if maintenanceMinutes != width {
		t.Errorf("maintenance window open %d minutes, want %d", maintenanceMinutes, width)
	}
}

func TestResinWindowOffsetFromCheckIn(t *testing.T) {
	// With check-in at hour 8 the resin sweep runs on odd hours only.
	for hour := 0; hour < 24; hour++ {
		now := time.Date(2024, 3, 15, hour, 5, 0, 0, time.UTC)
		want := hour%2 == 1
		if got := inResinWindow(now, 8, 10); got != want {
			t.Errorf("hour %d: inResinWindow = %v, want %v", hour, got, want)
		}
	}
}

func TestWindowsRespectIntervalWidth(t *testing.T) {
	at := func(min int) time.Time {
		return time.Date(2024, 3, 15, 8, min, 0, 0, time.UTC)
	}
	if !inDailyWindow(at(9), 8, 10) {
		t.Error("minute 9 should be inside a 10-minute window")
	}
	if inDailyWindow(at(10), 8, 10) {
		t.Error("minute 10 should be outside a 10-minute window")
	}
}
