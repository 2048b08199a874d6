package models

import (
	"strings"
	"time"
)

// ClassType distinguishes private and regular classes.
type ClassType string

const (
	ClassTypePrivate ClassType = "privat"
	ClassTypeRegular ClassType = "reguler"
)

// Valid returns true when the type is a supported value.
func (t ClassType) Valid() bool {
	return t == ClassTypePrivate || t == ClassTypeRegular
}

// DefaultCapacity returns the enrollment capacity used when none is given.
func (t ClassType) DefaultCapacity() int {
	if t == ClassTypeRegular {
		return 5
	}
	return 1
}

// Class represents a scheduled tahsin class owned by exactly one teacher.
// Days are stored as a comma-separated list of weekday names in schedule
// order.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Type      ClassType `db:"type" json:"type"`
	Name      string    `db:"name" json:"name"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Days      string    `db:"days" json:"-"`
	Time      string    `db:"time" json:"time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DayList splits the stored days column into the ordered weekday names.
func (c *Class) DayList() []string {
	if c.Days == "" {
		return nil
	}
	parts := strings.Split(c.Days, ",")
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		if d := strings.TrimSpace(p); d != "" {
			days = append(days, d)
		}
	}
	return days
}

// JoinDays renders an ordered day list into the stored column form.
func JoinDays(days []string) string {
	trimmed := make([]string, 0, len(days))
	for _, d := range days {
		if d = strings.TrimSpace(d); d != "" {
			trimmed = append(trimmed, d)
		}
	}
	return strings.Join(trimmed, ",")
}

// ClassDetail extends a class with its teacher's name for list views.
type ClassDetail struct {
	Class
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// ClassFilter captures listing parameters for classes.
type ClassFilter struct {
	TeacherID string
	Type      *ClassType
	Search    string
	Page      int
	PageSize  int
}
