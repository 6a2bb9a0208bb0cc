package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/cppla/paperroom/store"
)

// ChartDays is the trailing window of the room chart.
const ChartDays = 7

// ChartRow is one calendar day of a room chart.
type ChartRow struct {
	Date  string         `json:"date"`
	XP    map[string]int `json:"xp"`
	Total int            `json:"total"`
}

// Charts answers dashboard queries from the daily rollups.
type Charts struct {
	reader   store.Reader
	calendar Calendar
}

// NewCharts returns a chart reader.
func NewCharts(r store.Reader, cal Calendar) *Charts {
	return &Charts{reader: r, calendar: cal}
}

// Weekly returns exactly ChartDays rows, oldest first. Every member of the
// room and every user with XP in the window appears in every row.
func (c *Charts) Weekly(ctx context.Context, roomID uint, now time.Time) ([]ChartRow, error) {
	days := c.calendar.LastDays(now, ChartDays)

	members, err := c.reader.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chart members: %w", err)
	}
	points, err := c.reader.RoomDailyXP(ctx, roomID, days[0], days[len(days)-1])
	if err != nil {
		return nil, fmt.Errorf("chart xp: %w", err)
	}

	names := make(map[string]struct{}, len(members))
	for _, m := range members {
		names[displayName(m.Username, m.UserID)] = struct{}{}
	}
	byDay := make(map[string]map[string]int, len(days))
	for _, p := range points {
		name := displayName(p.Username, p.UserID)
		names[name] = struct{}{}
		if byDay[p.Day] == nil {
			byDay[p.Day] = map[string]int{}
		}
		byDay[p.Day][name] += p.XP
	}

	rows := make([]ChartRow, 0, len(days))
	for _, d := range days {
		row := ChartRow{Date: d, XP: make(map[string]int, len(names))}
		for name := range names {
			xp := byDay[d][name]
			row.XP[name] = xp
			row.Total += xp
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func displayName(username string, userID uint) string {
	if username != "" {
		return username
	}
	return fmt.Sprintf("user-%d", userID)
}
