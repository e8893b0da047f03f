package logger

import "time"

type Timer struct {
	StartTime time.Time
	Name      string
	Console   *Console
}

// End logs the elapsed time at debug level and returns it.
func (t *Timer) End() time.Duration {
	duration := time.Since(t.StartTime)
	t.Console.Debug(t.Name+" completed", "elapsed", duration.Round(time.Millisecond).String())
	return duration
}
