package services

import (
	"sort"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/dk"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fi"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/no"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/us"
)

// countryCalendarDefs maps ISO country codes to their business calendars.
// China is handled separately because its workday schedule includes
// compensatory working weekends that the cal package does not model.
var countryCalendarDefs = map[string]struct {
	Name     string
	Holidays []*cal.Holiday
}{
	"US": {"United States", us.Holidays},
	"GB": {"United Kingdom", gb.Holidays},
	"DE": {"Germany", de.Holidays},
	"FR": {"France", fr.Holidays},
	"JP": {"Japan", jp.Holidays},
	"AU": {"Australia", au.HolidaysNSW},
	"CA": {"Canada", ca.Holidays},
	"NZ": {"New Zealand", nz.Holidays},
	"IT": {"Italy", it.Holidays},
	"ES": {"Spain", es.Holidays},
	"NL": {"Netherlands", nl.Holidays},
	"BE": {"Belgium", be.Holidays},
	"AT": {"Austria", at.Holidays},
	"CH": {"Switzerland", ch.Holidays},
	"SE": {"Sweden", se.Holidays},
	"NO": {"Norway", no.Holidays},
	"DK": {"Denmark", dk.Holidays},
	"FI": {"Finland", fi.Holidays},
	"PL": {"Poland", pl.Holidays},
	"PT": {"Portugal", pt.Holidays},
	"IE": {"Ireland", ie.Holidays},
	"BR": {"Brazil", br.Holidays},
}

// HolidayService answers workday questions for digest scheduling.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{
		calendars: make(map[string]*cal.BusinessCalendar, len(countryCalendarDefs)),
	}
	for code, def := range countryCalendarDefs {
		c := cal.NewBusinessCalendar()
		c.Name = def.Name
		c.AddHoliday(def.Holidays...)
		s.calendars[code] = c
	}
	return s
}

// IsWorkday reports whether t is a working day in the given country.
// "NONE" means plain Monday to Friday; unknown codes fall back to that.
func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	if countryCode == "CN" {
		return s.isWorkdayChina(t)
	}

	c, ok := s.calendars[countryCode]
	if !ok {
		return !cal.IsWeekend(t)
	}

	return c.IsWorkday(t)
}

// isWorkdayChina consults the statutory holiday table, which knows about
// both holidays and the weekend days moved to compensate for them.
func (s *HolidayService) isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay())

	if holiday != nil {
		return holiday.IsWork()
	}

	weekday := t.Weekday()
	return weekday != time.Saturday && weekday != time.Sunday
}

func (s *HolidayService) IsHoliday(t time.Time, countryCode string) bool {
	return !s.IsWorkday(t, countryCode)
}

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// GetSupportedCountries lists the codes accepted for digest_country_code.
func (s *HolidayService) GetSupportedCountries() []CountryInfo {
	countries := []CountryInfo{
		{Code: "CN", Name: "China"},
		{Code: "NONE", Name: "Weekdays Only (Mon-Fri)"},
	}
	for code, def := range countryCalendarDefs {
		countries = append(countries, CountryInfo{Code: code, Name: def.Name})
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i].Code < countries[j].Code })
	return countries
}
