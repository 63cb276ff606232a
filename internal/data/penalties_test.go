package data_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clms-project/clms/internal/data"
	"github.com/clms-project/clms/internal/validator"
)

func Test_OverdueDays(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		due  time.Time
		now  time.Time
		want int
	}{
		{"due_in_future", day(10), day(5), 0},
		{"due_today", day(10), day(10), 0},
		{"one_day_late", day(10), day(11), 1},
		{"a_week_late", day(10), day(17), 7},
		{"time_of_day_is_ignored", day(10), day(11).Add(23 * time.Hour), 1},
		{
			// 01:00 local on the 11th is still the 10th in UTC; the local
			// calendar date is what counts.
			name: "local_date_wins_over_utc",
			due:  day(10),
			now:  time.Date(2026, time.March, 11, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60)),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, data.OverdueDays(tt.due, tt.now))
		})
	}
}

func Test_ValidatePenalty(t *testing.T) {
	due := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	valid := &data.Penalty{
		ClientName:       "Jordan Reyes",
		ClientPhone:      "555-0101",
		DateToBeReturned: due,
		DaysOverdue:      3,
		FeeAmount:        1.50,
	}

	v := validator.New()
	data.ValidatePenalty(v, valid)
	assert.True(t, v.Valid())

	tests := []struct {
		name     string
		mutate   func(p *data.Penalty)
		badField string
	}{
		{"missing_name", func(p *data.Penalty) { p.ClientName = "" }, "client_name"},
		{"missing_phone", func(p *data.Penalty) { p.ClientPhone = "" }, "client_phone"},
		{"missing_due_date", func(p *data.Penalty) { p.DateToBeReturned = time.Time{} }, "date_to_be_returned"},
		{"zero_days_overdue", func(p *data.Penalty) { p.DaysOverdue = 0 }, "days_overdue"},
		{"zero_fee", func(p *data.Penalty) { p.FeeAmount = 0 }, "fee_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := *valid
			tt.mutate(&p)
			v := validator.New()
			data.ValidatePenalty(v, &p)
			assert.Contains(t, v.Errors, tt.badField)
		})
	}
}

func Test_ValidatePayment(t *testing.T) {
	v := validator.New()
	data.ValidatePayment(v, &data.Payment{ClientName: "Jordan Reyes", ClientPhone: "555-0101", AmountPaid: 4.50})
	assert.True(t, v.Valid())

	v = validator.New()
	data.ValidatePayment(v, &data.Payment{ClientName: "Jordan Reyes", ClientPhone: "555-0101"})
	assert.Contains(t, v.Errors, "amount_paid")
}
