package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Name() string { return j.name }
func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func TestScheduler_RegisterInvalidSpec(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.Register("not a cron spec", &stubJob{name: "broken"})
	assert.Error(t, err)
}

func TestScheduler_RegisterValidSpec(t *testing.T) {
	s := New(zerolog.Nop())

	assert.NoError(t, s.Register("15 0 * * *", &stubJob{name: "daily_sync"}))
	assert.NoError(t, s.Register("45 3 * * *", &stubJob{name: "backup", err: errors.New("boom")}))

	// Failures inside a job must never tear down the scheduler
	s.Start()
	s.Stop()
}
