package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
)

const (
	defaultAnalyticsPeriod = 30
	maxAnalyticsPeriod     = 366
	recentCommissionLimit  = 10
)

func (s *Service) Analytics(ctx context.Context, query commissiondomain.AnalyticsQuery) (*commissiondomain.Analytics, error) {
	period := query.PeriodDays
	if period == 0 {
		period = defaultAnalyticsPeriod
	}
	if period < 0 || period > maxAnalyticsPeriod {
		return nil, commissiondomain.ErrInvalidPeriod
	}

	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	until := s.clock.Now().UTC()
	items, err := s.repo.ListForAnalytics(ctx, s.db, commissiondomain.AnalyticsFilter{
		Since:   until.AddDate(0, 0, -period),
		Until:   until,
		StoreID: query.StoreID,
		OwnerID: query.OwnerID,
	})
	if err != nil {
		return nil, err
	}

	out := summarize(items)
	out.Period = period
	return out, nil
}

// summarize expects items newest first.
func summarize(items []commissiondomain.Commission) *commissiondomain.Analytics {
	out := &commissiondomain.Analytics{
		Daily:  []commissiondomain.DailyTotal{},
		Status: []commissiondomain.StatusTotal{},
		Recent: []commissiondomain.Commission{},
	}

	rateSum := decimal.Zero
	daily := map[string]*commissiondomain.DailyTotal{}
	statuses := map[commissiondomain.Status]*commissiondomain.StatusTotal{}
	for _, item := range items {
		out.Total.TotalCommissions += item.CommissionAmount
		out.Total.TotalGross += item.GrossAmount
		out.Total.TotalNet += item.NetAmount
		out.Total.Count++
		rateSum = rateSum.Add(item.CommissionPercentage)

		day := item.CreatedAt.UTC().Format(time.DateOnly)
		d, ok := daily[day]
		if !ok {
			d = &commissiondomain.DailyTotal{Date: day}
			daily[day] = d
		}
		d.Commissions += item.CommissionAmount
		d.Gross += item.GrossAmount
		d.Count++

		st, ok := statuses[item.Status]
		if !ok {
			st = &commissiondomain.StatusTotal{Status: item.Status}
			statuses[item.Status] = st
		}
		st.Count++
		st.Amount += item.CommissionAmount

		if len(out.Recent) < recentCommissionLimit {
			out.Recent = append(out.Recent, item)
		}
	}

	if out.Total.Count > 0 {
		out.Total.AvgCommissionRate = rateSum.Div(decimal.NewFromInt(out.Total.Count)).Round(2)
	}

	for _, d := range daily {
		out.Daily = append(out.Daily, *d)
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })

	for _, st := range statuses {
		out.Status = append(out.Status, *st)
	}
	sort.Slice(out.Status, func(i, j int) bool { return out.Status[i].Status < out.Status[j].Status })

	return out
}
