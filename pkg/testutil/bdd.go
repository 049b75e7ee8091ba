package testutil

import "testing"

// Given and When wrap subtests so a webhook or lifecycle scenario reads as a
// sequence of named steps in the test output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}
