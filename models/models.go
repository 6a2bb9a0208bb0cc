package models

// All lists every model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Room{},
		&RoomMember{},
		&Task{},
		&TaskCompletion{},
		&UserStats{},
		&DailyStats{},
		&RoomDailyStats{},
		&RoomDailyActiveUser{},
		&MonthlyStats{},
		&Activity{},
	}
}
