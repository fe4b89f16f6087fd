// Package logging writes the startup summary of tagwatch.
package logging

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// Startup describes the resolved settings reported at startup.
type Startup struct {
	Version    string
	ConfigPath string
	StateFile  string
	Images     int
	DryRun     bool
	Platform   string
	Run        types.RunConfig
	// Next is the first scheduled check in daemon mode, zero otherwise.
	Next     time.Time
	Notifier types.Notifier
}

// WriteStartupMessage logs the startup summary unless it is suppressed.
func WriteStartupMessage(startup Startup) {
	if startup.Run.NoStartupMessage {
		return
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	log.Info("tagwatch ", startup.Version)
	log.WithFields(logrus.Fields{
		"config": startup.ConfigPath,
		"state":  startup.StateFile,
		"images": startup.Images,
	}).Info("Tracking configured images")

	if startup.Platform != "" {
		log.WithField("platform", startup.Platform).Info("Resolving platform-specific digests")
	}

	if startup.DryRun {
		log.WithField("dry_run", true).Info("Dry run: no images will be pulled and no containers replaced")
	}

	var notifierNames []string
	if startup.Notifier != nil {
		notifierNames = startup.Notifier.GetNames()
	}

	LogNotifierInfo(log, notifierNames)
	LogScheduleInfo(log, startup.Run, startup.Next)

	if startup.Run.EnableUpdateAPI || startup.Run.EnableMetricsAPI {
		log.Info(fmt.Sprintf("The HTTP API is enabled at :%s.", startup.Run.APIPort))
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.Warn("Trace level enabled: log will include sensitive information as credentials and tokens")
	}
}

// LogNotifierInfo logs the configured notification services.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) == 0 {
		log.Info("Using no notifications")

		return
	}

	caser := cases.Title(language.AmericanEnglish)
	titled := make([]string, 0, len(notifierNames))

	for _, name := range notifierNames {
		titled = append(titled, caser.String(name))
	}

	log.Info("Using notifications: " + strings.Join(titled, ", "))
}

// LogScheduleInfo logs whether tagwatch runs once, as a daemon or on API request.
func LogScheduleInfo(log *logrus.Entry, run types.RunConfig, next time.Time) {
	switch {
	case !run.RunOnce && !run.Daemon && run.EnableUpdateAPI:
		log.Info("Checks run on request through the HTTP API.")
	case run.RunOnce || !run.Daemon:
		log.Info("Running a one time check.")
	case !next.IsZero():
		log.Info("Checking every " + FormatDuration(run.Interval))
		log.Info("Scheduling next run: " + next.Format("2006-01-02 15:04:05 -0700 MST"))
	default:
		log.Info("Checking every " + FormatDuration(run.Interval))
	}
}

// FormatDuration renders a duration as "1 hour, 2 minutes, 3 seconds", omitting
// zero units.
func FormatDuration(duration time.Duration) string {
	const (
		minutesPerHour   = 60
		secondsPerMinute = 60
	)

	units := []struct {
		value            int64
		singular, plural string
	}{
		{int64(duration.Hours()), "hour", "hours"},
		{int64(math.Mod(duration.Minutes(), minutesPerHour)), "minute", "minutes"},
		{int64(math.Mod(duration.Seconds(), secondsPerMinute)), "second", "seconds"},
	}

	parts := make([]string, 0, len(units))

	for _, unit := range units {
		switch unit.value {
		case 0:
			continue
		case 1:
			parts = append(parts, "1 "+unit.singular)
		default:
			parts = append(parts, fmt.Sprintf("%d %s", unit.value, unit.plural))
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}

	return strings.Join(parts, ", ")
}
