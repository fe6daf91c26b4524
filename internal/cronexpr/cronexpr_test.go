package cronexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

func dailySchedule() catalog.Schedule {
	return catalog.Schedule{Minute: "0", Hour: "3", DayOfMonth: "*", Month: "*", Weekday: "*"}
}

func TestValidateScheduleAccepts(t *testing.T) {
	assert.NoError(t, ValidateSchedule(dailySchedule()))

	s := dailySchedule()
	s.Minute = "0-29"
	assert.NoError(t, ValidateSchedule(s))

	s = dailySchedule()
	s.Hour = "22-23"
	assert.NoError(t, ValidateSchedule(s))
}

func TestValidateScheduleRejectsOutOfRange(t *testing.T) {
	s := dailySchedule()
	s.Minute = "60"
	err := ValidateSchedule(s)
	require.Error(t, err)
	assert.Equal(t, pgerr.KindValidation, pgerr.KindOf(err))

	s = dailySchedule()
	s.Hour = "24"
	assert.Error(t, ValidateSchedule(s))
}

func TestValidateScheduleRejectsBackwardsRange(t *testing.T) {
	s := dailySchedule()
	s.Minute = "40-10"
	err := ValidateSchedule(s)
	require.Error(t, err)
	assert.Equal(t, pgerr.KindValidation, pgerr.KindOf(err))
}

func TestValidateScheduleRejectsEmptyField(t *testing.T) {
	s := dailySchedule()
	s.Weekday = ""
	assert.Error(t, ValidateSchedule(s))
}

func TestPickFromIntervalIsStable(t *testing.T) {
	a, err := PickFromInterval("0-29", 42)
	require.NoError(t, err)
	b, err := PickFromInterval("0-29", 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0)
	assert.LessOrEqual(t, a, 29)
}

func TestPickFromIntervalRejectsNonRange(t *testing.T) {
	_, err := PickFromInterval("*", 1)
	require.Error(t, err)
	assert.Equal(t, pgerr.KindValidation, pgerr.KindOf(err))
}

func TestNextOccurrences(t *testing.T) {
	after := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	times, err := NextOccurrences(dailySchedule(), after, 3)
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.Equal(t, 3, times[0].Hour())
	assert.True(t, times[1].After(times[0]))
}
