package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlots(t *testing.T) {
	t.Run("full working day", func(t *testing.T) {
		slots := GenerateSlots(9, 17, 30)

		assert.Len(t, slots, 17, "(17-9)*2 + 1 slots expected")
		assert.Equal(t, "09:00", slots[0])
		assert.Equal(t, "17:00", slots[len(slots)-1])
		assert.NotContains(t, slots, "17:30", "no slots past the top of the close hour")

		for i := 1; i < len(slots); i++ {
			assert.Less(t, slots[i-1], slots[i], "slots must be strictly ascending")
		}
	})

	t.Run("close hour emits only the hour slot", func(t *testing.T) {
		slots := GenerateSlots(9, 10, 30)
		assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)
	})

	t.Run("hourly interval", func(t *testing.T) {
		slots := GenerateSlots(9, 12, 60)
		assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00"}, slots)
	})

	t.Run("single hour", func(t *testing.T) {
		slots := GenerateSlots(9, 9, 30)
		assert.Equal(t, []string{"09:00"}, slots)
	})

	t.Run("malformed ranges yield empty", func(t *testing.T) {
		assert.Empty(t, GenerateSlots(17, 9, 30))
		assert.Empty(t, GenerateSlots(-1, 9, 30))
		assert.Empty(t, GenerateSlots(9, 24, 30))
		assert.Empty(t, GenerateSlots(9, 17, 0))
	})
}

func TestParseClock(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := ParseClock("09:30")
		assert.NoError(t, err)
		assert.Equal(t, 9*60+30, m)

		m, err = ParseClock("00:00")
		assert.NoError(t, err)
		assert.Equal(t, 0, m)

		m, err = ParseClock("23:59")
		assert.NoError(t, err)
		assert.Equal(t, 23*60+59, m)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"", "9", "24:00", "09:60", "ab:cd", "09:30:00", "-1:00"} {
			_, err := ParseClock(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(9*60+5))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "17:30", FormatClock(17*60+30))
}

func TestConflictSlots(t *testing.T) {
	t.Run("on the hour blocks both neighbors", func(t *testing.T) {
		assert.Equal(t, []string{"09:30", "10:00", "10:30"}, ConflictSlots("10:00", 60, 30))
	})

	t.Run("on the half hour blocks both neighbors", func(t *testing.T) {
		assert.Equal(t, []string{"10:00", "10:30", "11:00"}, ConflictSlots("10:30", 60, 30))
	})

	t.Run("off-grid minute still included and blocks overlapping grid slots", func(t *testing.T) {
		got := ConflictSlots("10:15", 60, 30)
		assert.Contains(t, got, "10:15")
		assert.Contains(t, got, "09:30")
		assert.Contains(t, got, "10:00")
		assert.Contains(t, got, "10:30")
		assert.Contains(t, got, "11:00")
		assert.NotContains(t, got, "09:00")
		assert.NotContains(t, got, "11:30")
	})

	t.Run("midnight has no earlier neighbor", func(t *testing.T) {
		assert.Equal(t, []string{"00:00", "00:30"}, ConflictSlots("00:00", 60, 30))
	})

	t.Run("unparseable booked time", func(t *testing.T) {
		assert.Nil(t, ConflictSlots("not-a-time", 60, 30))
	})
}

func TestHasConflict(t *testing.T) {
	booked := []string{"14:00"}

	assert.True(t, HasConflict("13:30", booked, 60))
	assert.True(t, HasConflict("14:00", booked, 60))
	assert.True(t, HasConflict("14:30", booked, 60))
	assert.False(t, HasConflict("13:00", booked, 60))
	assert.False(t, HasConflict("15:00", booked, 60))

	t.Run("unparseable entries are skipped", func(t *testing.T) {
		assert.True(t, HasConflict("14:00", []string{"garbage", "14:30"}, 60))
		assert.False(t, HasConflict("14:00", []string{"garbage"}, 60))
	})
}

func TestFilterConflicts(t *testing.T) {
	slots := GenerateSlots(9, 17, 30)

	available := FilterConflicts(slots, []string{"14:00"}, 60)

	assert.NotContains(t, available, "13:30")
	assert.NotContains(t, available, "14:00")
	assert.NotContains(t, available, "14:30")
	assert.Contains(t, available, "13:00")
	assert.Contains(t, available, "15:00")
	assert.Len(t, available, len(slots)-3)

	t.Run("no bookings keeps every slot", func(t *testing.T) {
		assert.Equal(t, slots, FilterConflicts(slots, nil, 60))
	})
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "sunday", WeekdayName(0))
	assert.Equal(t, "monday", WeekdayName(1))
	assert.Equal(t, "saturday", WeekdayName(6))
}
