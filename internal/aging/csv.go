package aging

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// WriteScheduleCSV serialises an aging schedule to CSV with grouped
// thousands in amounts.
func WriteScheduleCSV(w io.Writer, title string, schedule Schedule) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Report", title}); err != nil {
		return err
	}
	if err := writer.Write([]string{"As Of", schedule.AsOf.Format("2006-01-02")}); err != nil {
		return err
	}
	if err := writer.Write([]string{"Bucket", "Amount"}); err != nil {
		return err
	}
	records := [][]string{
		{BucketCurrent, formatAmount(schedule.Current)},
		{Bucket1To30, formatAmount(schedule.Days30)},
		{Bucket31To60, formatAmount(schedule.Days60)},
		{Bucket61To90, formatAmount(schedule.Days90)},
		{Bucket91Plus, formatAmount(schedule.Days91Up)},
		{"Total", formatAmount(schedule.Total)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatAmount(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}
