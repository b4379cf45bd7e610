package auditlog

import (
	"strings"
	"time"
)

// Activity is a per-day series of login and registration counts, shaped for
// the admin dashboard chart.
type Activity struct {
	Labels        []string `json:"labels"`
	Logins        []int    `json:"login_data"`
	Registrations []int    `json:"registration_data"`
}

// ActivityData aggregates LOGIN_* and *_registration events over the trailing
// window. Weekly views label by weekday, longer ranges by date.
func (t *Trail) ActivityData(days int) (*Activity, error) {
	if days <= 0 {
		days = 7
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	var dates []string
	logins := map[string]int{}
	registrations := map[string]int{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		dates = append(dates, key)
		logins[key] = 0
		registrations[key] = 0
	}

	entries, err := t.ReadEntries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		key := e.Timestamp.Format("2006-01-02")
		if _, tracked := logins[key]; !tracked {
			continue
		}
		switch {
		case strings.HasPrefix(e.EventType, "LOGIN_"):
			logins[key]++
		case strings.HasSuffix(strings.ToLower(e.EventType), "_registration"):
			registrations[key]++
		}
	}

	activity := &Activity{}
	for _, key := range dates {
		day, _ := time.ParseInLocation("2006-01-02", key, time.Local)
		if days <= 7 {
			activity.Labels = append(activity.Labels, day.Format("Mon"))
		} else {
			activity.Labels = append(activity.Labels, day.Format("Jan 02"))
		}
		activity.Logins = append(activity.Logins, logins[key])
		activity.Registrations = append(activity.Registrations, registrations[key])
	}
	return activity, nil
}
