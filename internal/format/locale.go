package format

import (
	"fmt"
	"time"
)

// Locale selects the language of date labels.
type Locale string

// Supported locales.
const (
	English Locale = "en"
	Turkish Locale = "tr"
)

// ParseLocale maps a config value to a Locale. Empty means English.
func ParseLocale(s string) (Locale, error) {
	switch Locale(s) {
	case "", English:
		return English, nil
	case Turkish:
		return Turkish, nil
	}
	return "", fmt.Errorf("format: unsupported locale %q", s)
}

type phrases struct {
	today, tomorrow, yesterday string
	ahead, ago                 string // take the day count
	weekdays                   [7]string
	months                     [12]string
	long                       func(p phrases, t time.Time) string
}

var catalog = map[Locale]phrases{
	English: {
		today: "Today", tomorrow: "Tomorrow", yesterday: "Yesterday",
		ahead: "%d days ahead", ago: "%d days ago",
		weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		long: func(p phrases, t time.Time) string {
			return fmt.Sprintf("%s, %s %d, %d", p.weekdays[t.Weekday()], p.months[t.Month()-1], t.Day(), t.Year())
		},
	},
	Turkish: {
		today: "Bugün", tomorrow: "Yarın", yesterday: "Dün",
		ahead: "%d gün sonra", ago: "%d gün önce",
		weekdays: [7]string{"Pazar", "Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi"},
		months: [12]string{"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
			"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık"},
		long: func(p phrases, t time.Time) string {
			return fmt.Sprintf("%d %s %d %s", t.Day(), p.months[t.Month()-1], t.Year(), p.weekdays[t.Weekday()])
		},
	},
}

func (l Locale) phrases() phrases {
	if p, ok := catalog[l]; ok {
		return p
	}
	return catalog[English]
}
