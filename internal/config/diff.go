package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything else
// needs a restart and is reported wholesale via RestartNeeded.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PacingChanged is true if any drill delay changed. New pacing applies
	// from the next started drill.
	PacingChanged bool
	NewPacing     DrillConfig

	// RestartNeeded is true when provider, content or results settings
	// changed; those are wired at startup and cannot be swapped live.
	RestartNeeded bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Drill != new.Drill {
		d.PacingChanged = true
		d.NewPacing = new.Drill
	}

	// ProviderEntry carries an options map, so compare deeply.
	if !reflect.DeepEqual(old.Providers, new.Providers) ||
		old.Content != new.Content ||
		old.Results != new.Results ||
		old.Server.MetricsAddr != new.Server.MetricsAddr {
		d.RestartNeeded = true
	}

	return d
}
