// Package fitexport turns a completed analysis session into a strength
// training FIT activity, one Set message per repetition, so results can
// be loaded into watches and training platforms.
package fitexport

import (
	"bytes"
	"fmt"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

const exerciseName = "pull-up"

// Generate encodes the session's repetition events as a FIT activity
// starting at startTime. Event timestamps are offsets into the video
// and become offsets from startTime.
func Generate(events []rep.Event, startTime time.Time, videoDuration float64) ([]byte, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no repetition events to export")
	}

	fit := &proto.FIT{
		Messages: []proto.Message{},
	}

	fileId := mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetManufacturer(typedef.ManufacturerDevelopment).
		SetProduct(1).
		SetTimeCreated(startTime)
	fit.Messages = append(fit.Messages, fileId.ToMesg(nil))

	activityMsg := mesgdef.NewActivity(nil).
		SetTimestamp(startTime).
		SetType(typedef.ActivityManual).
		SetNumSessions(1)
	fit.Messages = append(fit.Messages, activityMsg.ToMesg(nil))

	sessionMsg := mesgdef.NewSession(nil).
		SetTimestamp(startTime).
		SetSport(typedef.SportTraining).
		SetSubSport(typedef.SubSportStrengthTraining).
		SetStartTime(startTime)
	if videoDuration > 0 {
		sessionMsg.SetTotalElapsedTime(uint32(videoDuration * 1000))
		sessionMsg.SetTotalTimerTime(uint32(videoDuration * 1000))
	}
	fit.Messages = append(fit.Messages, sessionMsg.ToMesg(nil))

	for i, e := range events {
		setStart := startTime.Add(time.Duration(e.StartTime * float64(time.Second)))
		duration := e.EndTime - e.StartTime

		setType := typedef.SetTypeActive
		if e.Result == rep.ResultFailed {
			// Failed attempts still count as work; rest type keeps them
			// out of the platform's rep totals.
			setType = typedef.SetTypeRest
		}

		setMsg := mesgdef.NewSet(nil).
			SetTimestamp(setStart).
			SetStartTime(setStart).
			SetCategory([]typedef.ExerciseCategory{typedef.ExerciseCategoryPullUp}).
			SetSetType(setType).
			SetMessageIndex(typedef.MessageIndex(i)).
			SetRepetitions(1)
		if duration > 0 {
			setMsg.SetDuration(uint32(duration * 1000))
		}
		fit.Messages = append(fit.Messages, setMsg.ToMesg(nil))
	}

	var buf bytes.Buffer
	enc := encoder.New(&buf)
	if err := enc.Encode(fit); err != nil {
		return nil, fmt.Errorf("failed to encode FIT file: %w", err)
	}
	return buf.Bytes(), nil
}

// ActivityName returns the display name used for exported activities,
// e.g. "Pull-Up Session (5 reps)".
func ActivityName(completed int) string {
	title := cases.Title(language.English).String(exerciseName)
	return fmt.Sprintf("%s Session (%d reps)", title, completed)
}
