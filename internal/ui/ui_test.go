package ui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/crm"
)

func TestUnavailable(t *testing.T) {
	err := Unavailable{}.AssertNotifications(context.Background(), "John", crm.EntityReference{}, nil)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRecorded_Match(t *testing.T) {
	r := NewRecorded()
	r.Show("John",
		crm.FormNotification{Level: "warning", Message: "Missing email"},
		crm.FormNotification{Level: "info", Message: "VIP"},
	)

	err := r.AssertNotifications(context.Background(), "John", crm.EntityReference{}, []crm.FormNotification{
		{Level: "info", Message: "VIP"},
		{Level: "warning", Message: "Missing email"},
	})
	assert.NoError(t, err, "order does not matter")
}

func TestRecorded_ReportsEveryDifference(t *testing.T) {
	r := NewRecorded()
	r.Show("John", crm.FormNotification{Level: "info", Message: "VIP"})

	err := r.AssertNotifications(context.Background(), "John", crm.EntityReference{}, []crm.FormNotification{
		{Level: "error", Message: "Blocked"},
	})
	require.Error(t, err)

	var af *crm.AssertionFailure
	require.True(t, errors.As(err, &af))
	require.Len(t, af.Mismatches, 2)
	assert.Equal(t, "[error] Blocked", af.Mismatches[0].Expected)
	assert.Equal(t, "[info] VIP", af.Mismatches[1].Actual)
}

func TestRecorded_NothingShown(t *testing.T) {
	r := NewRecorded()
	assert.NoError(t, r.AssertNotifications(context.Background(), "Jane", crm.EntityReference{}, nil))
}
