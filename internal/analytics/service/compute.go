package service

import (
	"math"
	"sort"
	"time"

	"hvac_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadRecord is the slice of a lead the aggregation needs. ProjectValue is
// the budget of the project the lead converted into, when there is one.
type LeadRecord struct {
	ID           uuid.UUID
	Status       domain.Status
	ServiceType  string
	Source       string
	CreatedAt    time.Time
	ConvertedAt  *time.Time
	ProjectValue *float64
}

type Breakdown struct {
	Key            string  `json:"key"`
	Leads          int     `json:"leads"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversionRate"`
}

type ConversionMetrics struct {
	Timeframe            Timeframe   `json:"timeframe"`
	PeriodStart          time.Time   `json:"periodStart"`
	PeriodEnd            time.Time   `json:"periodEnd"`
	TotalLeads           int         `json:"totalLeads"`
	ActiveLeads          int         `json:"activeLeads"`
	ConvertedLeads       int         `json:"convertedLeads"`
	LostLeads            int         `json:"lostLeads"`
	ConversionRate       float64     `json:"conversionRate"`
	AverageTimeToConvert float64     `json:"averageTimeToConvert"`
	TotalProjectValue    float64     `json:"totalProjectValue"`
	AverageProjectValue  float64     `json:"averageProjectValue"`
	Monthly              []Breakdown `json:"monthly"`
	ByServiceType        []Breakdown `json:"byServiceType"`
	BySource             []Breakdown `json:"bySource"`
	GeneratedAt          time.Time   `json:"generatedAt"`
}

const monthKeyLayout = "2006-01"

// unknownKey groups leads without a service type or source.
const unknownKey = "unknown"

// Compute aggregates records created within [start, end). Records outside
// the window are ignored.
func Compute(tf Timeframe, start, end time.Time, records []LeadRecord, now time.Time) ConversionMetrics {
	m := ConversionMetrics{
		Timeframe:   tf,
		PeriodStart: start,
		PeriodEnd:   end,
		GeneratedAt: now.UTC(),
	}

	monthly := newGroups()
	byService := newGroups()
	bySource := newGroups()

	var convertDays float64
	var convertSamples int

	for _, r := range records {
		if r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}

		won := r.Status == domain.StatusWon
		m.TotalLeads++
		switch {
		case won:
			m.ConvertedLeads++
			if r.ProjectValue != nil {
				m.TotalProjectValue += *r.ProjectValue
			}
			if r.ConvertedAt != nil {
				convertDays += r.ConvertedAt.Sub(r.CreatedAt).Hours() / 24
				convertSamples++
			}
		case r.Status.IsActive():
			m.ActiveLeads++
		case r.Status.IsClosedLost():
			m.LostLeads++
		}

		monthly.add(r.CreatedAt.UTC().Format(monthKeyLayout), won)
		byService.add(keyOrUnknown(r.ServiceType), won)
		bySource.add(keyOrUnknown(r.Source), won)
	}

	m.ConversionRate = rate(m.ConvertedLeads, m.TotalLeads)
	if convertSamples > 0 {
		m.AverageTimeToConvert = round2(convertDays / float64(convertSamples))
	}
	if m.ConvertedLeads > 0 {
		m.AverageProjectValue = round2(m.TotalProjectValue / float64(m.ConvertedLeads))
	}
	m.TotalProjectValue = round2(m.TotalProjectValue)

	m.Monthly = monthly.breakdowns()
	sort.Slice(m.Monthly, func(i, j int) bool { return m.Monthly[i].Key < m.Monthly[j].Key })

	m.ByServiceType = byService.breakdowns()
	sortByRate(m.ByServiceType)

	m.BySource = bySource.breakdowns()
	sortByRate(m.BySource)

	return m
}

// rate is converted/total as a percentage with two decimals, 0 when total is 0.
func rate(converted, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(converted) / float64(total) * 100)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func keyOrUnknown(key string) string {
	if key == "" {
		return unknownKey
	}
	return key
}

// sortByRate orders by conversion rate descending, then lead count
// descending, then key.
func sortByRate(b []Breakdown) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].ConversionRate != b[j].ConversionRate {
			return b[i].ConversionRate > b[j].ConversionRate
		}
		if b[i].Leads != b[j].Leads {
			return b[i].Leads > b[j].Leads
		}
		return b[i].Key < b[j].Key
	})
}

type groupCount struct {
	leads, converted int
}

type groups map[string]*groupCount

func newGroups() groups { return make(groups) }

func (g groups) add(key string, won bool) {
	c, ok := g[key]
	if !ok {
		c = &groupCount{}
		g[key] = c
	}
	c.leads++
	if won {
		c.converted++
	}
}

func (g groups) breakdowns() []Breakdown {
	out := make([]Breakdown, 0, len(g))
	for key, c := range g {
		out = append(out, Breakdown{
			Key:            key,
			Leads:          c.leads,
			Converted:      c.converted,
			ConversionRate: rate(c.converted, c.leads),
		})
	}
	return out
}
