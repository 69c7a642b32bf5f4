package service

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"guardian/backend/config"
	"guardian/backend/internal/model"
)

const testTZ = "Europe/London"

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, Timezone: testTZ},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-1234567890",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Attendance: config.AttendanceConfig{
			GraceMinutes:     10,
			ProximityMinutes: 30,
			Lookback:         6 * time.Hour,
			Buffer:           30 * time.Minute,
			CheckInTypes:     []string{model.ActivityCheckedIn},
		},
		Payroll: config.PayrollConfig{
			VarianceThresholdHours: 0.25,
			MissingInputPolicy:     MissingInputSkip,
			MaxPeriodDays:          31,
		},
	}
}

func london() *time.Location {
	loc, err := time.LoadLocation(testTZ)
	if err != nil {
		panic(err)
	}
	return loc
}

// at 伦敦时区的墙上时间
func at(date, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, london())
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func addGuard(m *mockRepos, id, badge string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	u := &model.User{
		UserID:       id,
		Name:         "保安" + badge,
		BadgeNumber:  badge,
		Email:        badge + "@test.com",
		PasswordHash: string(hash),
		Role:         model.RoleGuard,
		IsActive:     true,
	}
	m.user.users[id] = u
	return u
}

func addUser(m *mockRepos, id, badge, role string) *model.User {
	u := addGuard(m, id, badge)
	u.Role = role
	return u
}

func addShift(m *mockRepos, guardID, date, start, end string, breaks ...model.BreakWindow) *model.Shift {
	return m.shift.add(&model.Shift{
		GuardID:   guardID,
		ShiftDate: day(date),
		StartTime: start,
		EndTime:   end,
		Breaks:    breaks,
	})
}
