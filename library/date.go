package library

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a plain calendar day. Months are checked to be 1-12 and days 1-31;
// there is no per-month or leap-year validation.
type Date struct {
	day   int
	month int
	year  int
}

// NewDate validates the ranges and returns the date.
func NewDate(day, month, year int) (Date, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, fmt.Errorf("%w: invalid date %d/%d/%d", ErrInvalidArgument, day, month, year)
	}
	return Date{day: day, month: month, year: year}, nil
}

// Today returns the local calendar day of now.
func Today(now time.Time) Date {
	local := now.Local()
	return Date{day: local.Day(), month: int(local.Month()), year: local.Year()}
}

// ParseDate accepts D/M/YYYY and DD/MM/YYYY.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: date %q is not D/M/YYYY", ErrInvalidArgument, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: date %q: %v", ErrInvalidArgument, s, err)
		}
		nums[i] = n
	}
	return NewDate(nums[0], nums[1], nums[2])
}

func (d Date) Day() int   { return d.day }
func (d Date) Month() int { return d.month }
func (d Date) Year() int  { return d.year }

// IsZero reports whether d is the zero value (never a valid date).
func (d Date) IsZero() bool { return d == Date{} }

// AddDays shifts the date by n days of local wall-clock time, starting from
// local midnight. The arithmetic adds n*24h, so a daylight-saving transition
// in between can land on the neighbouring calendar day.
func (d Date) AddDays(n int) Date {
	midnight := time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.Local)
	return Today(midnight.Add(time.Duration(n) * 24 * time.Hour))
}

// DaysUntil returns the number of calendar days from d to other, negative when
// other is earlier.
func (d Date) DaysUntil(other Date) int {
	from := time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
	to := time.Date(other.year, time.Month(other.month), other.day, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Compare returns -1, 0 or +1 ordering by year, month, then day.
func (d Date) Compare(other Date) int {
	if c := cmp.Compare(d.year, other.year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.month, other.month); c != 0 {
		return c
	}
	return cmp.Compare(d.day, other.day)
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d == other }

// String renders DD/MM/YYYY, the on-disk representation.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%d", d.day, d.month, d.year)
}
