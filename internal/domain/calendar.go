package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

const (
	MinutesPerDay = 24 * 60
	EndOfDay      = ClockTime(MinutesPerDay)
)

// ParseClockTime accepts "HH:MM" between 00:00 and 23:59.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q: hour must be 0-23", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: minute must be 0-59", s)
	}
	return Clock(h, m), nil
}

func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// DayHours is the working interval for one weekday, in whole hours.
type DayHours struct {
	Enabled bool `json:"enabled"`
	Start   int  `json:"start"`
	End     int  `json:"end"`
}

func (h DayHours) Validate() error {
	if !h.Enabled {
		if h.Start < 0 || h.Start > 24 || h.End < 0 || h.End > 24 {
			return errors.New("hours must be between 0 and 24")
		}
		return nil
	}
	if h.Start < 0 || h.Start >= 24 {
		return errors.New("start hour must be between 0 and 23")
	}
	if h.End <= 0 || h.End > 24 {
		return errors.New("end hour must be between 1 and 24")
	}
	if h.Start >= h.End {
		return errors.New("start hour must be before end hour")
	}
	return nil
}

func (h DayHours) Opens() ClockTime  { return Clock(h.Start, 0) }
func (h DayHours) Closes() ClockTime { return Clock(h.End, 0) }

// Covers reports whether [start, end) lies inside the enabled interval.
func (h DayHours) Covers(start, end ClockTime) bool {
	return h.Enabled && start >= h.Opens() && end <= h.Closes()
}

func (h DayHours) String() string {
	return h.Opens().String() + "-" + h.Closes().String()
}

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range weekdayNames {
		if n == name || n[:3] == name {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// WeeklyHours maps a weekday to its configured hours. A missing weekday has no configuration.
type WeeklyHours map[time.Weekday]DayHours

func (w WeeklyHours) For(day time.Weekday) (DayHours, bool) {
	h, ok := w[day]
	return h, ok
}

func (w WeeklyHours) Validate() error {
	for day, h := range w {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("invalid weekday %d", day)
		}
		if err := h.Validate(); err != nil {
			return fmt.Errorf("%s: %w", weekdayNames[day], err)
		}
	}
	return nil
}

func (w WeeklyHours) Clone() WeeklyHours {
	if w == nil {
		return nil
	}
	out := make(WeeklyHours, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

func (w WeeklyHours) MarshalJSON() ([]byte, error) {
	named := make(map[string]DayHours, len(w))
	for day, h := range w {
		if day < time.Sunday || day > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", day)
		}
		named[weekdayNames[day]] = h
	}
	return json.Marshal(named)
}

func (w *WeeklyHours) UnmarshalJSON(data []byte) error {
	var named map[string]DayHours
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	out := make(WeeklyHours, len(named))
	for name, h := range named {
		day, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		out[day] = h
	}
	*w = out
	return nil
}

func (w WeeklyHours) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	b, err := w.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (w *WeeklyHours) Scan(src any) error {
	return scanJSON(src, w)
}

// Holiday is an inclusive range of dates.
type Holiday struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func (h Holiday) Contains(d Date) bool {
	return !d.Before(h.Start) && !d.After(h.End)
}

func (h Holiday) Validate() error {
	if h.Start.IsZero() || h.End.IsZero() {
		return errors.New("holiday start and end are required")
	}
	if h.End.Before(h.Start) {
		return fmt.Errorf("holiday %s ends before it starts", h.Start)
	}
	return nil
}

type Holidays []Holiday

func (hs Holidays) Contains(d Date) bool {
	for _, h := range hs {
		if h.Contains(d) {
			return true
		}
	}
	return false
}

func (hs Holidays) Validate() error {
	for _, h := range hs {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Sorted returns a copy ordered by start date.
func (hs Holidays) Sorted() Holidays {
	out := make(Holidays, len(hs))
	copy(out, hs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func (hs Holidays) Value() (driver.Value, error) {
	if hs == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Holiday(hs))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (hs *Holidays) Scan(src any) error {
	return scanJSON(src, hs)
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
