package sqlstore

import (
	"fmt"
	"time"
)

// isoMillis is the fixed-width UTC layout SQLite timestamps are written in.
// Values in this layout sort lexically in time order, and it matches the
// strings found in pre-existing users.sqlite files.
const isoMillis = "2006-01-02T15:04:05.000Z"

// readLayouts are tried in order when a timestamp column comes back as text.
var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Time converts t into the value bound for a timestamp column.
func (d Dialect) Time(t time.Time) any {
	if d.textTimes {
		return t.UTC().Format(isoMillis)
	}
	return t.UTC()
}

// nullTime scans timestamp columns stored either natively or as text.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (n *nullTime) parse(s string) error {
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
