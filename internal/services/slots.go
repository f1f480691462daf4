package services

import (
	"fmt"
	"time"
)

// SlotLength is the spacing of the booking template.
const SlotLength = 30 * time.Minute

// clockTime is a wall-clock position within a day.
type clockTime struct {
	hour, minute int
}

func (c clockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.hour, c.minute)
}

// span covers first..last inclusive in SlotLength steps.
func span(firstHour, firstMinute, lastHour, lastMinute int) []clockTime {
	var out []clockTime
	start := firstHour*60 + firstMinute
	end := lastHour*60 + lastMinute
	step := int(SlotLength / time.Minute)
	for m := start; m <= end; m += step {
		out = append(out, clockTime{hour: m / 60, minute: m % 60})
	}
	return out
}

// dailySlots is the fixed template: a morning block and an afternoon block.
var dailySlots = append(span(9, 0, 11, 30), span(14, 0, 16, 30)...)

// SlotTemplate places the daily template in the clinic's time zone.
type SlotTemplate struct {
	Location *time.Location
}

func (t SlotTemplate) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

// Day returns midnight of the clinic day containing instant.
func (t SlotTemplate) Day(instant time.Time) time.Time {
	local := instant.In(t.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.location())
}

// ParseDay reads a YYYY-MM-DD date as a clinic day.
func (t SlotTemplate) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, t.location())
}

// SlotsOn returns the template instants for the clinic day containing day, in UTC.
func (t SlotTemplate) SlotsOn(day time.Time) []time.Time {
	midnight := t.Day(day)
	out := make([]time.Time, 0, len(dailySlots))
	for _, c := range dailySlots {
		slot := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), c.hour, c.minute, 0, 0, t.location())
		out = append(out, slot.UTC())
	}
	return out
}

// Label formats a slot as clinic-local HH:MM.
func (t SlotTemplate) Label(slot time.Time) string {
	return slot.In(t.location()).Format("15:04")
}
